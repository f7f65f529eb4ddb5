package conf

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

type Opts struct {
	DataDir  string `long:"datadir" description:"specified program data dir"`
	Conf     string `long:"conf" description:"path to a yaml configuration file"`
	LogLevel string `long:"loglevel" description:"log level: emergency, alert, critical, error, warn, notice, info, debug"`
	DBCache  int    `long:"dbcache" default:"0" description:"chain state cache size in MiB (0 keeps the configured value)"`
}

func InitArgs(args []string) (*Opts, error) {
	opts := new(Opts)
	_, err := flags.ParseArgs(opts, args)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	return opts, nil
}

func (opts *Opts) String() string {
	return fmt.Sprintf("datadir:%s conf:%s loglevel:%s dbcache:%d", opts.DataDir, opts.Conf, opts.LogLevel, opts.DBCache)
}
