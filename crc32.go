package phar

import (
	"hash/crc32"
	"sync"
)

var (
	crcTableOnce sync.Once
	crcTable     *crc32.Table
)

func crcTableInit() *crc32.Table {
	crcTableOnce.Do(func() {
		crcTable = crc32.MakeTable(crc32.IEEE)
	})
	return crcTable
}

// checksumCRC32 computes the standard CRC-32/IEEE checksum (polynomial
// 0xEDB88320, initial value 0xFFFFFFFF, reflected, final XOR 0xFFFFFFFF) of
// data. The lookup table is built once per process.
func checksumCRC32(data []byte) uint32 {
	return crc32.Checksum(data, crcTableInit())
}
