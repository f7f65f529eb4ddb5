package conf

import (
	"bytes"
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	envPrefix = "chainstate"

	// ChainstateDirName is the leveldb directory below DataDir.
	ChainstateDirName = "chainstate"
)

//go:embed conf.yml
var defaultConf []byte

var Cfg *Configuration

type Configuration struct {
	DataDir string `yaml:"datadir"`
	Log     struct {
		Level  string   `yaml:"level"`  // emergency, alert, critical, error, warn, notice, info, debug
		Module []string `yaml:"module"` // modules whose Print calls are emitted
		Dir    string   `yaml:"dir"`    // empty logs to the console
	} `yaml:"log"`
	Chainstate struct {
		CacheSizeMB      int  `yaml:"cachesizemb"`      // leveldb block cache + write buffer
		FlushWatermarkMB int  `yaml:"flushwatermarkmb"` // tip cache usage that triggers a flush
		AnchorCacheSize  int  `yaml:"anchorcachesize"`  // decoded anchor trees kept by the store
		Wipe             bool `yaml:"wipe"`
		DontObfuscate    bool `yaml:"dontobfuscate"`
		ForceCompact     bool `yaml:"forcecompact"`
	} `yaml:"chainstate"`
}

// InitConfig loads the configuration for args and panics if it cannot be
// assembled.
func InitConfig(args []string) *Configuration {
	return must(LoadConfig(args)).(*Configuration)
}

// LoadConfig layers the embedded defaults, the optional file named by
// --conf, CHAINSTATE_* environment variables and finally the command line.
func LoadConfig(args []string) (*Configuration, error) {
	opts, err := InitArgs(args)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadConfig(bytes.NewReader(defaultConf)); err != nil {
		return nil, errors.Wrap(err, "read default config")
	}
	if opts.Conf != "" {
		file, err := os.Open(opts.Conf)
		if err != nil {
			return nil, errors.Wrapf(err, "open config %s", opts.Conf)
		}
		defer file.Close()
		if err := v.MergeConfig(file); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", opts.Conf)
		}
	}

	config := &Configuration{}
	config.DataDir = v.GetString("datadir")
	config.Log.Level = v.GetString("log.level")
	config.Log.Module = v.GetStringSlice("log.module")
	config.Log.Dir = v.GetString("log.dir")
	config.Chainstate.CacheSizeMB = v.GetInt("chainstate.cachesizemb")
	config.Chainstate.FlushWatermarkMB = v.GetInt("chainstate.flushwatermarkmb")
	config.Chainstate.AnchorCacheSize = v.GetInt("chainstate.anchorcachesize")
	config.Chainstate.Wipe = v.GetBool("chainstate.wipe")
	config.Chainstate.DontObfuscate = v.GetBool("chainstate.dontobfuscate")
	config.Chainstate.ForceCompact = v.GetBool("chainstate.forcecompact")

	if opts.DataDir != "" {
		config.DataDir = opts.DataDir
	}
	if opts.LogLevel != "" {
		config.Log.Level = opts.LogLevel
	}
	if opts.DBCache > 0 {
		config.Chainstate.CacheSizeMB = opts.DBCache
	}
	if config.DataDir == "" {
		config.DataDir = defaultDataDir()
	}

	return config, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".chainstate")
	}
	return filepath.Join(home, ".chainstate")
}

// ChainstateDir is the directory holding the coins database.
func (c *Configuration) ChainstateDir() string {
	return filepath.Join(c.DataDir, ChainstateDirName)
}

// CacheSizeBytes is the leveldb cache budget in bytes.
func (c *Configuration) CacheSizeBytes() int {
	return c.Chainstate.CacheSizeMB << 20
}

// FlushWatermarkBytes is the tip cache usage above which a conditional
// flush writes to disk.
func (c *Configuration) FlushWatermarkBytes() int64 {
	return int64(c.Chainstate.FlushWatermarkMB) << 20
}

func (c *Configuration) String() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return err.Error()
	}
	return string(out)
}

// SetUnitTestDataDir points cfg at a fresh temporary directory and returns it.
func SetUnitTestDataDir(cfg *Configuration) (string, error) {
	dir, err := os.MkdirTemp("", "chainstate-test")
	if err != nil {
		return "", err
	}
	cfg.DataDir = dir
	return dir, nil
}

func must(i interface{}, err error) interface{} {
	if err != nil {
		panic(err)
	}
	return i
}
