//go:build nvs2

package partition

// Partitions is the number of NVS partitions compiled in.
const Partitions = 2
