// Package config loads the quoting settings that sit next to PocketBase's
// own flags (data dir, http address).
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// DefaultPath is read when present; a missing file leaves the defaults.
const DefaultPath = "cotizador.yaml"

type Config struct {
	Cotizacion struct {
		Prefijo      string
		Organizacion string
		// MarkupDefault is the run-level markup factor (0.30 = 30%).
		MarkupDefault float64 `mapstructure:"markup_default"`
		// Reintentos bounds correlative allocation when a collision is found.
		Reintentos int
	} `mapstructure:"cotizacion"`

	Corrida struct {
		Prefijo string
	} `mapstructure:"corrida"`

	Expansion struct {
		// FactorIteraciones multiplies the size of the reachable rule graph
		// to obtain the maximum expansion pops.
		FactorIteraciones int `mapstructure:"factor_iteraciones"`
	} `mapstructure:"expansion"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`
}

// Default returns the settings used when no file or env override exists.
func Default() Config {
	var c Config
	c.Cotizacion.Prefijo = "COT"
	c.Cotizacion.Organizacion = "GS-I"
	c.Cotizacion.MarkupDefault = 0.30
	c.Cotizacion.Reintentos = 5
	c.Corrida.Prefijo = "COR"
	c.Expansion.FactorIteraciones = 10
	c.Metrics.Enabled = true
	return c
}

// Load reads path (YAML) and COTIZADOR_* env vars on top of Default.
func Load(path string) (Config, error) {
	d := Default()

	v := viper.New()
	v.SetDefault("cotizacion.prefijo", d.Cotizacion.Prefijo)
	v.SetDefault("cotizacion.organizacion", d.Cotizacion.Organizacion)
	v.SetDefault("cotizacion.markup_default", d.Cotizacion.MarkupDefault)
	v.SetDefault("cotizacion.reintentos", d.Cotizacion.Reintentos)
	v.SetDefault("corrida.prefijo", d.Corrida.Prefijo)
	v.SetDefault("expansion.factor_iteraciones", d.Expansion.FactorIteraciones)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)

	v.SetEnvPrefix("COTIZADOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return d, err
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return d, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return d, err
	}
	if c.Expansion.FactorIteraciones <= 0 {
		c.Expansion.FactorIteraciones = d.Expansion.FactorIteraciones
	}
	if c.Cotizacion.Reintentos <= 0 {
		c.Cotizacion.Reintentos = d.Cotizacion.Reintentos
	}
	return c, nil
}

// Markup returns the default markup as a decimal factor.
func (c Config) Markup() decimal.Decimal {
	return decimal.NewFromFloat(c.Cotizacion.MarkupDefault)
}
