package config

import (
	"fmt"
	"log"
	"os"
	"reflect"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/rclone/rclone/fs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var Config *MainConfig
var ConfigChanged bool

type UsersConfig struct {
	TargetId     string
	Name         string
	DownloadDir  string
	NeedDownload bool
	UserHeaders  map[string]string
	ExtraConfig  map[string]interface{}
}

type ModuleConfig struct {
	Name             string
	Enable           bool
	Users            []UsersConfig
	DownloadProvider string
	ExtraConfig      map[string]interface{}
}

type MainConfig struct {
	CheckIntervalSec int
	LogFile          string
	LogFileSize      int
	LogLevel         string
	RLogLevel        string
	DownloadQuality  string
	DownloadDir      string
	ArchiveDir       string
	DataDir          string
	FilenamePattern  string
	CookiesFile      string
	WebHost          string
	RedisHost        string
	Module           []ModuleConfig
	ExtraConfig      map[string]interface{}
}

func InitConfig(configFile string) {
	log.Print("Init config!")
	initConfig(configFile)
	log.Print("Load config!")
	_, _ = ReloadConfig()
}

func initConfig(configFile string) {
	viper.SetConfigFile(configFile)
	err := viper.ReadInConfig()
	if err != nil {
		fmt.Printf("config file error: %s\n", err)
		os.Exit(1)
	}
	viper.WatchConfig()

	ConfigChanged = true
	viper.OnConfigChange(func(in fsnotify.Event) {
		ConfigChanged = true
	})
}

// ReloadConfig re-reads the config file if it changed since the last load.
// Unknown keys at any level land in the matching ExtraConfig map, so modules
// and plugins can carry their own options without the schema knowing them.
func ReloadConfig() (bool, error) {
	if !ConfigChanged {
		return false, nil
	}
	ConfigChanged = false
	err := viper.ReadInConfig()
	if err != nil {
		return true, err
	}
	config := &MainConfig{}
	err = viper.Unmarshal(config, func(c *mapstructure.DecoderConfig) {
		c.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			func(inType reflect.Type, outType reflect.Type, input interface{}) (interface{}, error) {
				if inType.Kind() == reflect.Map && outType.Kind() == reflect.Struct { // we'll decoding a struct
					fieldsMap := make(map[string]reflect.StructField, 10)
					for i := 0; i < outType.NumField(); i++ {
						fieldsMap[strings.ToLower(outType.Field(i).Name)] = outType.Field(i)
					}
					inputMap := input.(map[string]interface{})
					extraConfig := make(map[string]interface{}, 5)
					inputMap["ExtraConfig"] = extraConfig
					for key := range inputMap {
						_, ok := fieldsMap[strings.ToLower(key)]
						if !ok {
							extraConfig[key] = inputMap[key]
						}
					}
				}
				return input, nil
			},
			c.DecodeHook)
	})
	if err != nil {
		fmt.Println("Struct config error")
	}

	if config.CheckIntervalSec == 0 {
		config.CheckIntervalSec = 60
	}
	if config.DownloadQuality == "" {
		config.DownloadQuality = "best"
	}
	if config.FilenamePattern == "" {
		config.FilenamePattern = "{username}_{datetime}"
	}
	if config.LogFileSize == 0 {
		config.LogFileSize = 50
	}
	Config = config

	UpdateLogLevel()
	return true, nil
}

// UpdateLogLevel applies the configured levels. The logger itself stays at
// debug; the console hook filters, so the file hook keeps full detail.
func UpdateLogLevel() {
	fs.Config.LogLevel = fs.LogLevelInfo
	if Config.RLogLevel == "debug" {
		fs.Config.LogLevel = fs.LogLevelDebug
	} else if Config.RLogLevel == "info" {
		fs.Config.LogLevel = fs.LogLevelInfo
	} else if Config.RLogLevel == "warn" {
		fs.Config.LogLevel = fs.LogLevelWarning
	} else if Config.RLogLevel == "error" {
		fs.Config.LogLevel = fs.LogLevelError
	}
	log.Printf("Set rclone log level to %s", fs.Config.LogLevel)

	level := logrus.InfoLevel
	if Config.LogLevel == "debug" {
		level = logrus.DebugLevel
	} else if Config.LogLevel == "info" {
		level = logrus.InfoLevel
	} else if Config.LogLevel == "warn" {
		level = logrus.WarnLevel
	} else if Config.LogLevel == "error" {
		level = logrus.ErrorLevel
	}
	if ConsoleHook != nil {
		ConsoleHook.LogLevel = level
	}
	log.Printf("Set log level to %s", level)
}
