package db

import (
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"

	lvldb "github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Chain state key prefixes.
const (
	DbCoins             byte = 'c'
	DbBestBlock         byte = 'B'
	DbSproutAnchor      byte = 'A'
	DbSaplingAnchor     byte = 'Z'
	DbBestSproutAnchor  byte = 'a'
	DbBestSaplingAnchor byte = 'z'
	DbSproutNullifier   byte = 's'
	DbSaplingNullifier  byte = 'S'
)

// The obfuscation key lives under a key no prefix above can produce.
var obfuscateKeyKey = []byte("\000obfuscate_key")

const obfuscateKeyLen = 8

func IsNotFound(err error) bool {
	return err == lvldb.ErrNotFound
}

type DBOption struct {
	FilePath       string
	CacheSize      int
	Wipe           bool
	DontObfuscate  bool
	ForceCompactdb bool
	// InMemory keeps the database in a leveldb memory storage; FilePath and
	// Wipe are ignored.
	InMemory bool
}

// DBWrapper is a leveldb handle whose values are xored with a per-database
// obfuscation key.
type DBWrapper struct {
	db           *lvldb.DB
	name         string
	obfuscateKey []byte
	readOption   opt.ReadOptions
	iterOption   opt.ReadOptions
}

func levelOptions(cacheSize int) *opt.Options {
	return &opt.Options{
		BlockCacher:            opt.LRUCacher,
		BlockCacheCapacity:     cacheSize / 2,
		WriteBuffer:            cacheSize / 4,
		Filter:                 filter.NewBloomFilter(10),
		Compression:            opt.NoCompression,
		OpenFilesCacheCapacity: 64,
	}
}

func openLevelDB(do *DBOption) (*lvldb.DB, error) {
	opts := levelOptions(do.CacheSize)
	if do.InMemory {
		return lvldb.Open(storage.NewMemStorage(), opts)
	}
	if do.Wipe {
		if err := os.RemoveAll(do.FilePath); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(do.FilePath, 0740); err != nil {
		return nil, err
	}
	return lvldb.OpenFile(do.FilePath, opts)
}

func NewDBWrapper(do *DBOption) (*DBWrapper, error) {
	if do == nil {
		return nil, errors.New("DBWrapper: nil DBOption")
	}
	db, err := openLevelDB(do)
	if err != nil {
		return nil, err
	}
	if do.ForceCompactdb {
		if err := db.CompactRange(util.Range{}); err != nil {
			db.Close()
			return nil, err
		}
	}

	strict := opt.StrictJournalChecksum | opt.StrictBlockChecksum
	dbw := &DBWrapper{
		db:         db,
		name:       filepath.Base(do.FilePath),
		readOption: opt.ReadOptions{Strict: strict},
		iterOption: opt.ReadOptions{Strict: strict, DontFillCache: true},
	}
	if err := dbw.loadObfuscateKey(!do.DontObfuscate); err != nil {
		db.Close()
		return nil, err
	}
	return dbw, nil
}

// loadObfuscateKey reads the stored key. Only an empty database gets a new
// one, so existing plain data stays readable.
func (dbw *DBWrapper) loadObfuscateKey(create bool) error {
	key, err := dbw.db.Get(obfuscateKeyKey, &dbw.readOption)
	if err == nil {
		dbw.obfuscateKey = key
		return nil
	}
	if !IsNotFound(err) {
		return err
	}
	if !create || !dbw.IsEmpty() {
		return nil
	}
	key = make([]byte, obfuscateKeyLen)
	if _, err := rand.Read(key); err != nil {
		return err
	}
	// the key itself is stored in the clear
	if err := dbw.db.Put(obfuscateKeyKey, key, &opt.WriteOptions{Sync: true}); err != nil {
		return err
	}
	dbw.obfuscateKey = key
	return nil
}

func xor(val, key []byte) {
	if len(key) == 0 {
		return
	}
	for i := range val {
		val[i] ^= key[i%len(key)]
	}
}

func (dbw *DBWrapper) Read(key []byte) ([]byte, error) {
	value, err := dbw.db.Get(key, &dbw.readOption)
	if err != nil {
		return nil, err
	}
	xor(value, dbw.obfuscateKey)
	return value, nil
}

// Exists panics on any error other than not-found.
func (dbw *DBWrapper) Exists(key []byte) bool {
	ok, err := dbw.db.Has(key, &dbw.readOption)
	if err != nil {
		panic("DBWrapper: " + err.Error())
	}
	return ok
}

func (dbw *DBWrapper) Write(key, val []byte, sync bool) error {
	bw := NewBatchWrapper(dbw)
	bw.Write(key, val)
	return dbw.WriteBatch(bw, sync)
}

func (dbw *DBWrapper) Erase(key []byte, sync bool) error {
	bw := NewBatchWrapper(dbw)
	bw.Erase(key)
	return dbw.WriteBatch(bw, sync)
}

func (dbw *DBWrapper) WriteBatch(bw *BatchWrapper, sync bool) error {
	return dbw.db.Write(&bw.bat, &opt.WriteOptions{Sync: sync})
}

func (dbw *DBWrapper) Iterator() *IterWrapper {
	return dbw.newIterator(nil)
}

// PrefixIterator walks the keys starting with prefix in ascending order.
func (dbw *DBWrapper) PrefixIterator(prefix []byte) *IterWrapper {
	return dbw.newIterator(util.BytesPrefix(prefix))
}

func (dbw *DBWrapper) newIterator(slice *util.Range) *IterWrapper {
	return &IterWrapper{Iterator: dbw.db.NewIterator(slice, &dbw.iterOption), parent: dbw}
}

func (dbw *DBWrapper) IsEmpty() bool {
	it := dbw.Iterator()
	defer it.Close()
	return !it.First()
}

// EstimateSize is the approximate on-disk size of [begin, end), or 0 when
// leveldb cannot tell.
func (dbw *DBWrapper) EstimateSize(begin, end []byte) uint64 {
	sizes, err := dbw.db.SizeOf([]util.Range{{Start: begin, Limit: end}})
	if err != nil {
		return 0
	}
	return uint64(sizes.Sum())
}

func (dbw *DBWrapper) GetObfuscateKey() []byte {
	return dbw.obfuscateKey
}

func (dbw *DBWrapper) Name() string {
	return dbw.name
}

func (dbw *DBWrapper) Close() error {
	if dbw.db == nil {
		return nil
	}
	return dbw.db.Close()
}

// BatchWrapper collects obfuscated puts and deletes for one atomic write.
type BatchWrapper struct {
	bat     lvldb.Batch
	parent  *DBWrapper
	scratch []byte
	sizeEst int
}

func NewBatchWrapper(parent *DBWrapper) *BatchWrapper {
	return &BatchWrapper{parent: parent, scratch: make([]byte, 0, 1024)}
}

// varintLen assumes keys and values below 16k.
func varintLen(n int) int {
	if n > 127 {
		return 2
	}
	return 1
}

// Write queues key=val. leveldb copies both slices, so the scratch buffer is
// reused across calls.
func (bw *BatchWrapper) Write(key, val []byte) {
	bw.scratch = append(bw.scratch[:0], val...)
	xor(bw.scratch, bw.parent.obfuscateKey)
	bw.bat.Put(key, bw.scratch)
	// header byte, key length, key, value length, value
	bw.sizeEst += 1 + varintLen(len(key)) + len(key) + varintLen(len(val)) + len(val)
}

func (bw *BatchWrapper) Erase(key []byte) {
	bw.bat.Delete(key)
	bw.sizeEst += 1 + varintLen(len(key)) + len(key)
}

func (bw *BatchWrapper) SizeEstimate() int {
	return bw.sizeEst
}

// Len is the number of queued puts and deletes.
func (bw *BatchWrapper) Len() int {
	return bw.bat.Len()
}

func (bw *BatchWrapper) Clear() {
	bw.bat.Reset()
	bw.sizeEst = 0
}

// IterWrapper is a snapshot iterator returning copied, deobfuscated values.
type IterWrapper struct {
	iterator.Iterator
	parent *DBWrapper
}

func (iw *IterWrapper) SeekToFirst() {
	iw.First()
}

func (iw *IterWrapper) GetKey() []byte {
	return append([]byte(nil), iw.Key()...)
}

func (iw *IterWrapper) GetVal() []byte {
	val := append([]byte(nil), iw.Value()...)
	xor(val, iw.parent.obfuscateKey)
	return val
}

func (iw *IterWrapper) Close() {
	iw.Release()
}
