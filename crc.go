package subspace

import (
	"fmt"
	"hash/crc32"
	"io"
	"io/ioutil"
	"os"
)

// Read the whole of file and checksum it on the way through
func readFile(file string) ([]byte, string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	h := crc32.NewIEEE()
	b, err := ioutil.ReadAll(io.TeeReader(f, h))
	if err != nil {
		return nil, "", err
	}

	return b, fmt.Sprintf("%.*X", crc32.Size<<1, h.Sum(nil)), nil
}
