// Package config загружает настройки клиента и сервера из флагов, переменных
// окружения с префиксом STUDYSYNC_ и необязательного файла конфигурации.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "STUDYSYNC"

// ErrInvalidConfig некорректное значение настройки
var ErrInvalidConfig = errors.New("invalid config")

// flagKeys сопоставляет имена флагов ключам конфигурации
type flagKeys map[string]string

// load читает конфигурацию в out. Приоритет: флаги, окружение, файл, значения по умолчанию.
func load(defaults map[string]any, flags *pflag.FlagSet, keys flagKeys, out any) error {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range keys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}
