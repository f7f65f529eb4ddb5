package errcode

import "fmt"

type PersistErr int

const (
	ErrorOpenDatabase PersistErr = PersistErrorBase + iota
	ErrorDatabaseCorrupted
	ErrorDecodeCoins
	ErrorDecodeAnchor
	ErrorNotExistsInPersistMap
)

var persistErrString = map[PersistErr]string{
	ErrorOpenDatabase:      "ErrorOpenDatabase",
	ErrorDatabaseCorrupted: "ErrorDatabaseCorrupted",
	ErrorDecodeCoins:       "ErrorDecodeCoins",
	ErrorDecodeAnchor:      "ErrorDecodeAnchor",
}

func (pe PersistErr) String() string {
	if s, ok := persistErrString[pe]; ok {
		return s
	}
	return fmt.Sprintf("Unknown code (%d)", pe)
}
