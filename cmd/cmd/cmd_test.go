package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ostafen/flashpart/pkg/lock"
	"github.com/ostafen/flashpart/pkg/partition"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func setupImage(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)

	image := filepath.Join(dir, "flash.img")
	_, err := run(t, "--image", image, "init")
	require.NoError(t, err)
	return image
}

func TestInit(t *testing.T) {
	image := setupImage(t)

	info, err := os.Stat(image)
	require.NoError(t, err)
	require.Equal(t, int64(1<<20), info.Size())

	_, err = run(t, "--image", image, "init")
	require.ErrorIs(t, err, errImageExists)

	out, err := run(t, "--image", image, "init", "--force")
	require.NoError(t, err)
	require.Contains(t, out, "ready")
}

func TestWriteThenRead(t *testing.T) {
	image := setupImage(t)
	dir := filepath.Dir(image)

	in := filepath.Join(dir, "in.bin")
	require.NoError(t, os.WriteFile(in, []byte("hello flash"), 0o644))

	_, err := run(t, "--image", image, "write", partition.LabelNVS, in, "--offset", "0x10")
	require.NoError(t, err)

	outFile := filepath.Join(dir, "out.bin")
	_, err = run(t, "--image", image, "read", partition.LabelNVS, "--offset", "16", "--size", "11", "--out", outFile)
	require.NoError(t, err)

	got, err := os.ReadFile(outFile)
	require.NoError(t, err)
	require.Equal(t, []byte("hello flash"), got)

	out, err := run(t, "--image", image, "read", partition.LabelNVS, "--size", "32")
	require.NoError(t, err)
	require.Contains(t, out, "68 65 6c 6c 6f")
}

func TestWriteEncryptedNeedsBlocks(t *testing.T) {
	image := setupImage(t)

	in := filepath.Join(filepath.Dir(image), "in.bin")
	require.NoError(t, os.WriteFile(in, make([]byte, 15), 0o644))

	_, err := run(t, "--image", image, "write", partition.LabelNVS, in, "--encrypted")
	require.ErrorIs(t, err, partition.ErrInvalidArg)
}

func TestEraseRestoresErasedState(t *testing.T) {
	image := setupImage(t)
	dir := filepath.Dir(image)

	in := filepath.Join(dir, "in.bin")
	require.NoError(t, os.WriteFile(in, bytes.Repeat([]byte{0x00}, 64), 0o644))

	_, err := run(t, "--image", image, "write", partition.LabelNVS, in)
	require.NoError(t, err)

	_, err = run(t, "--image", image, "erase", partition.LabelNVS, "--size", "4K", "--no-progress")
	require.NoError(t, err)

	outFile := filepath.Join(dir, "out.bin")
	_, err = run(t, "--image", image, "read", partition.LabelNVS, "--size", "64", "--out", outFile)
	require.NoError(t, err)

	got, err := os.ReadFile(outFile)
	require.NoError(t, err)
	require.Equal(t, bytes.Repeat([]byte{0xFF}, 64), got)
}

func TestEraseErrors(t *testing.T) {
	image := setupImage(t)

	_, err := run(t, "--image", image, "erase", partition.LabelNVS, "--offset", "100", "--size", "4K")
	require.ErrorIs(t, err, partition.ErrInvalidArg)

	_, err = run(t, "--image", image, "erase", partition.LabelNVS, "--size", "100")
	require.ErrorIs(t, err, partition.ErrInvalidSize)

	_, err = run(t, "--image", image, "erase", partition.LabelNVS, "--offset", "0", "--size", "1G")
	require.ErrorIs(t, err, partition.ErrSizeTooLarge)

	_, err = run(t, "--image", image, "erase", "missing")
	require.ErrorIs(t, err, partition.ErrNotFound)
}

func TestStrictLockCommands(t *testing.T) {
	image := setupImage(t)
	halted := useStrictLock(t)
	dir := filepath.Dir(image)

	in := filepath.Join(dir, "in.bin")
	require.NoError(t, os.WriteFile(in, bytes.Repeat([]byte{0x5A}, 32), 0o644))

	_, err := run(t, "--image", image, "--strict-lock", "write", partition.LabelNVS, in, "--erase", "--encrypted")
	require.NoError(t, err)

	outFile := filepath.Join(dir, "out.bin")
	_, err = run(t, "--image", image, "--strict-lock", "read", partition.LabelNVS, "--size", "32", "--out", outFile)
	require.NoError(t, err)

	got, err := os.ReadFile(outFile)
	require.NoError(t, err)
	require.Equal(t, bytes.Repeat([]byte{0x5A}, 32), got)

	require.False(t, halted.Load())
	require.False(t, lock.Locked())
}

func TestTable(t *testing.T) {
	image := setupImage(t)

	out, err := run(t, "--image", image, "table")
	require.NoError(t, err)
	require.Contains(t, out, "LABEL")
	require.Contains(t, out, partition.LabelNVS)

	out, err = run(t, "--image", image, "table", "--format", "dfxml")
	require.NoError(t, err)
	require.Contains(t, out, "<filename>"+partition.LabelNVS+"</filename>")

	_, err = run(t, "--image", image, "table", "--format", "json")
	require.Error(t, err)

	_, err = run(t, "--image", image, "table", "missing")
	require.ErrorIs(t, err, partition.ErrNotFound)
}

func TestVerify(t *testing.T) {
	image := setupImage(t)
	dir := filepath.Dir(image)

	report, err := run(t, "--image", image, "table", "--format", "dfxml")
	require.NoError(t, err)

	good := filepath.Join(dir, "table.xml")
	require.NoError(t, os.WriteFile(good, []byte(report), 0o644))

	out, err := run(t, "verify", good)
	require.NoError(t, err)
	require.Contains(t, out, "matches")

	p := partition.Default().At(0)
	tampered := strings.Replace(report,
		fmt.Sprintf(`img_offset="%d"`, p.Address),
		fmt.Sprintf(`img_offset="%d"`, p.Address+4096), 1)
	require.NotEqual(t, report, tampered)

	bad := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(bad, []byte(tampered), 0o644))

	out, err = run(t, "verify", bad)
	require.ErrorIs(t, err, errTableMismatch)
	require.Contains(t, out, p.Label+": image range")
}

func TestVerifyTable(t *testing.T) {
	reg := partition.Default()
	p := reg.At(0)

	doc := fmt.Sprintf(`<dfxml>
<fileobject><filename>%s</filename><filesize>%d</filesize><partition_type>app</partition_type><partition_subtype>%s</partition_subtype>
<byte_runs><byte_run offset="0" img_offset="%d" len="%d"/></byte_runs></fileobject>
<fileobject><filename>ghost</filename><filesize>4096</filesize></fileobject>
<fileobject><filename>%s</filename><filesize>4096</filesize></fileobject>
</dfxml>`, p.Label, p.Size, p.Subtype, p.Address, p.Size, p.Label)

	problems, err := verifyTable(reg, strings.NewReader(doc))
	require.NoError(t, err)
	require.Contains(t, problems, fmt.Sprintf("%s: type app/%s, want data/%s", p.Label, p.Subtype, p.Subtype))
	require.Contains(t, problems, "ghost: not in the partition table")
	require.Contains(t, problems, p.Label+": listed twice")

	_, err = verifyTable(reg, strings.NewReader("<report/>"))
	require.Error(t, err)
}

func TestSectorSpan(t *testing.T) {
	start, size := sectorSpan(0x10, 11)
	require.Equal(t, uint32(0), start)
	require.Equal(t, uint32(4096), size)

	start, size = sectorSpan(4000, 200)
	require.Equal(t, uint32(0), start)
	require.Equal(t, uint32(8192), size)

	start, size = sectorSpan(4096, 4096)
	require.Equal(t, uint32(4096), start)
	require.Equal(t, uint32(4096), size)
}
