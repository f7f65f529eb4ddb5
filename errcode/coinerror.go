package errcode

import "fmt"

type CoinErr int

const (
	ErrorMissingInputs CoinErr = CoinErrorBase + iota
	ErrorOverwriteUnspentCoins
	ErrorUnknownAnchor
	ErrorNullifierAlreadySpent
	ErrorBadUndoData
	ErrorNotExistsInCoinMap
)

var coinErrString = map[CoinErr]string{
	ErrorMissingInputs:         "Inputs missing or spent",
	ErrorOverwriteUnspentCoins: "Tried to overwrite unspent coins",
	ErrorUnknownAnchor:         "Unknown commitment tree anchor",
	ErrorNullifierAlreadySpent: "Nullifier already spent",
	ErrorBadUndoData:           "Undo data does not match the coins view",
}

func (ce CoinErr) String() string {
	if s, ok := coinErrString[ce]; ok {
		return s
	}
	return fmt.Sprintf("Unknown code (%d)", ce)
}
