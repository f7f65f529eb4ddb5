package util

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	mrand "math/rand"
	"time"
)

// newInsecureRand reads n bytes from crypto/rand, panicking if the system
// source is unavailable.
func newInsecureRand(n int) []byte {
	randByte := make([]byte, n)
	_, err := rand.Read(randByte)
	if err != nil {
		panic("init rand number creator failed...")
	}
	return randByte
}

// InsecureRand32 create a random number in [0 math.MaxUint32]
func InsecureRand32() uint32 {
	return binary.LittleEndian.Uint32(newInsecureRand(4))
}

func InsecureRand64() uint64 {
	return binary.LittleEndian.Uint64(newInsecureRand(8))
}

func GetRandHash() *Hash {
	var hash Hash
	copy(hash[:], newInsecureRand(Hash256Size))
	return &hash
}

func GetRand(nMax uint64) uint64 {
	if nMax == 0 {
		return 0
	}

	nRange := (math.MaxUint64 / nMax) * nMax
	nRand := InsecureRand64()
	for nRand >= nRange {
		nRand = InsecureRand64()
	}

	return nRand % nMax
}

func GetRandInt(nMax int) int {
	return int(GetRand(uint64(nMax)))
}

// FastRandomContext is a multiply-with-carry generator for randomized tests.
// A deterministic context always yields the same sequence.
type FastRandomContext struct {
	rz uint32
	rw uint32
}

func NewFastRandomContext(fDeterministic bool) *FastRandomContext {
	fastRandomContext := FastRandomContext{}

	if fDeterministic {
		fastRandomContext.rw = 11
		fastRandomContext.rz = 11
	} else {
		src := mrand.New(mrand.NewSource(time.Now().UnixNano()))
		tmp := src.Uint32()
		for tmp == 0 || tmp == 0x9068ffff {
			tmp = src.Uint32()
		}
		fastRandomContext.rz = tmp

		tmp = src.Uint32()
		for tmp == 0 || tmp == 0x464fffff {
			tmp = src.Uint32()
		}
		fastRandomContext.rw = tmp
	}
	return &fastRandomContext
}

func (f *FastRandomContext) Rand32() uint32 {
	f.rz = 36969*(f.rz&65535) + (f.rz >> 16)
	f.rw = 18000*(f.rw&65535) + (f.rw >> 16)
	return (f.rw << 16) + f.rz
}

// RandRange returns a value in [0, n). n must be positive.
func (f *FastRandomContext) RandRange(n uint32) uint32 {
	return f.Rand32() % n
}

// RandBool returns true with probability 1/n.
func (f *FastRandomContext) RandBool(n uint32) bool {
	return f.RandRange(n) == 0
}

func (f *FastRandomContext) RandHash() Hash {
	var hash Hash
	for i := 0; i < Hash256Size; i += 4 {
		binary.LittleEndian.PutUint32(hash[i:], f.Rand32())
	}
	return hash
}
