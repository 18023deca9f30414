//go:build !nvs2

package partition

// Partitions is the number of NVS partitions compiled in. Build with the
// nvs2 tag to add the second one.
const Partitions = 1
