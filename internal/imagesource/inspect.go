package imagesource

import (
	diskfs "github.com/diskfs/go-diskfs"
)

// partitionTableType opens an image read only and reports its partition table
// type ("mbr" or "gpt").
func partitionTableType(path string) (string, error) {
	d, err := diskfs.Open(path, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		return "", err
	}
	defer d.Close()

	table, err := d.GetPartitionTable()
	if err != nil {
		return "", err
	}
	return table.Type(), nil
}
