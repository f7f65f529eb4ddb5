package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

const (
	Hash256Size       = 32
	MaxHashStringSize = Hash256Size * 2
)

// Hash is a 256-bit identifier: a transaction id, a block hash, a commitment
// tree root or a nullifier. Like bitcoin, its string form is byte-reversed.
type Hash [Hash256Size]byte

var HashZero = Hash{}

// Sha256Hash calculates sha256(sha256(b)).
func Sha256Hash(b []byte) Hash {
	first := sha256.Sum256(b)
	return Hash(sha256.Sum256(first[:]))
}

func (hash Hash) String() string {
	return hash.ToString()
}

func (hash *Hash) ToString() string {
	bytes := hash.GetCloneBytes()
	for i := 0; i < Hash256Size/2; i++ {
		bytes[i], bytes[Hash256Size-1-i] = bytes[Hash256Size-1-i], bytes[i]
	}
	return hex.EncodeToString(bytes)
}

func (hash *Hash) Serialize(w io.Writer) (int, error) {
	return w.Write(hash[:])
}

func (hash *Hash) Unserialize(r io.Reader) (int, error) {
	return io.ReadFull(r, hash[:])
}

func (hash *Hash) GetCloneBytes() []byte {
	bytes := make([]byte, Hash256Size)
	copy(bytes, hash[:])
	return bytes
}

// Cmp compares the raw byte representation of two hashes.
func (hash *Hash) Cmp(other *Hash) int {
	return bytes.Compare(hash[:], other[:])
}

func (hash *Hash) SetBytes(b []byte) error {
	length := len(b)
	if length != Hash256Size {
		return fmt.Errorf("invalid hash length of %v , want %v", length, Hash256Size)
	}
	copy(hash[:], b)
	return nil
}

func (hash *Hash) IsEqual(target *Hash) bool {
	if hash == nil && target == nil {
		return true
	}
	if hash == nil || target == nil {
		return false
	}
	return *hash == *target
}

func (hash *Hash) IsNull() bool {
	return *hash == HashZero
}

func BytesToHash(b []byte) (*Hash, error) {
	hash := new(Hash)
	if err := hash.SetBytes(b); err != nil {
		return nil, err
	}
	return hash, nil
}

func GetHashFromStr(hashStr string) (*Hash, error) {
	b, err := DecodeHash(hashStr)
	if err != nil {
		return nil, err
	}
	return BytesToHash(b)
}

// DecodeHash parses the byte-reversed hex form of a hash. Short strings are
// left-padded with zeros.
func DecodeHash(src string) ([]byte, error) {
	if len(src) > MaxHashStringSize {
		return nil, fmt.Errorf("max hash string length is %v bytes", MaxHashStringSize)
	}
	var srcBytes []byte
	if len(src)%2 == 0 {
		srcBytes = []byte(src)
	} else {
		srcBytes = make([]byte, 1+len(src))
		srcBytes[0] = '0'
		copy(srcBytes[1:], src)
	}
	reversedHash := make([]byte, Hash256Size)
	_, err := hex.Decode(reversedHash[Hash256Size-hex.DecodedLen(len(srcBytes)):], srcBytes)
	if err != nil {
		return nil, err
	}
	b := make([]byte, Hash256Size)
	for i, c := range reversedHash[:Hash256Size/2] {
		b[i], b[Hash256Size-1-i] = reversedHash[Hash256Size-1-i], c
	}
	return b, nil
}

func HashFromString(hexString string) *Hash {
	hash, err := GetHashFromStr(hexString)
	if err != nil {
		panic(err)
	}
	return hash
}
