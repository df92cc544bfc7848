package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

func init() {
	// Payload quantities and costs are JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Equipo is a catalog equipment model.
type Equipo struct {
	ID          string `json:"id"`
	Modelo      string `json:"modelo"`
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion"`
	Sistema     string `json:"sistema"`
}

// Material is a catalog material. CostoUnitario is the base cost before markup.
type Material struct {
	ID            string          `json:"id"`
	Codigo        string          `json:"codigo"`
	Nombre        string          `json:"nombre"`
	Unidad        string          `json:"unidad"`
	Familia       string          `json:"familia"`
	Sistema       string          `json:"sistema"`
	CostoUnitario decimal.Decimal `json:"costo_unitario"`
	Stock         decimal.Decimal `json:"stock"`
}

// Catalog is an in-memory snapshot of equipment and materials keyed by code.
type Catalog struct {
	equipos    map[string]Equipo
	materiales map[string]Material
	porID      map[string]string
}

// NewCatalog indexes equipment by model and materials by code. Later entries
// win on duplicate codes.
func NewCatalog(equipos []Equipo, materiales []Material) *Catalog {
	c := &Catalog{
		equipos:    make(map[string]Equipo, len(equipos)),
		materiales: make(map[string]Material, len(materiales)),
		porID:      make(map[string]string, len(materiales)),
	}
	for _, e := range equipos {
		c.equipos[NormalizeCodigo(e.Modelo)] = e
	}
	for _, m := range materiales {
		code := NormalizeCodigo(m.Codigo)
		m.Codigo = code
		m.Familia = NormalizeFamilia(m.Familia)
		c.materiales[code] = m
		if m.ID != "" {
			c.porID[m.ID] = code
		}
	}
	return c
}

// Equipo looks up equipment by model code.
func (c *Catalog) Equipo(modelo string) (Equipo, bool) {
	e, ok := c.equipos[NormalizeCodigo(modelo)]
	return e, ok
}

// Material looks up a material by code.
func (c *Catalog) Material(codigo string) (Material, bool) {
	m, ok := c.materiales[NormalizeCodigo(codigo)]
	return m, ok
}

// MaterialByID looks up a material by its record id.
func (c *Catalog) MaterialByID(id string) (Material, bool) {
	code, ok := c.porID[id]
	if !ok {
		return Material{}, false
	}
	return c.Material(code)
}

// NumMateriales returns how many distinct material codes the catalog holds.
func (c *Catalog) NumMateriales() int {
	return len(c.materiales)
}

// Materiales returns every material sorted by name, optionally restricted to
// one system. An empty sistema returns all.
func (c *Catalog) Materiales(sistema string) []Material {
	sistema = strings.ToUpper(strings.TrimSpace(sistema))
	out := make([]Material, 0, len(c.materiales))
	for _, m := range c.materiales {
		if sistema != "" && strings.ToUpper(m.Sistema) != sistema {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Nombre != out[j].Nombre {
			return out[i].Nombre < out[j].Nombre
		}
		return out[i].Codigo < out[j].Codigo
	})
	return out
}

// NormalizeCodigo trims surrounding whitespace from an equipment or material code.
func NormalizeCodigo(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeFamilia trims and upper-cases a material family.
func NormalizeFamilia(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidSistema reports whether s names a known system (case-insensitive).
func ValidSistema(s string) bool {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, opt := range SistemaOptions {
		if opt == s {
			return true
		}
	}
	return false
}

// LoadCatalog reads all equipment and materials once.
func LoadCatalog(app core.App) (*Catalog, error) {
	equipoRecs, err := app.FindAllRecords("equipos")
	if err != nil {
		return nil, fmt.Errorf("load equipos: %w", err)
	}
	materialRecs, err := app.FindAllRecords("materiales")
	if err != nil {
		return nil, fmt.Errorf("load materiales: %w", err)
	}

	equipos := make([]Equipo, 0, len(equipoRecs))
	for _, r := range equipoRecs {
		equipos = append(equipos, Equipo{
			ID:          r.Id,
			Modelo:      r.GetString("modelo"),
			Nombre:      r.GetString("nombre"),
			Descripcion: r.GetString("descripcion"),
			Sistema:     r.GetString("sistema"),
		})
	}
	materiales := make([]Material, 0, len(materialRecs))
	for _, r := range materialRecs {
		materiales = append(materiales, materialFromRecord(r))
	}
	return NewCatalog(equipos, materiales), nil
}

func materialFromRecord(r *core.Record) Material {
	return Material{
		ID:            r.Id,
		Codigo:        r.GetString("codigo"),
		Nombre:        r.GetString("nombre"),
		Unidad:        r.GetString("unidad"),
		Familia:       r.GetString("familia"),
		Sistema:       r.GetString("sistema"),
		CostoUnitario: decimal.NewFromFloat(r.GetFloat("costo_unitario")),
		Stock:         decimal.NewFromFloat(r.GetFloat("stock")),
	}
}
