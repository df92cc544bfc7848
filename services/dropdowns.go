package services

// SistemaOptions lists the HVAC systems materials and equipment belong to.
var SistemaOptions = []string{"VRF", "CHW"}

// UnidadOptions returns the list of unit of measurement options.
var UnidadOptions = []string{
	"un",
	"m",
	"m2",
	"kg",
	"lb",
	"gl",
	"lt",
	"jgo",
	"par",
	"rollo",
	"caja",
	"global",
}

// FamiliaOptions lists the material families that route to an obra task,
// in template order.
func FamiliaOptions() []string {
	var out []string
	for _, p := range plantillaObra {
		out = append(out, p.Familias...)
	}
	return out
}

// Opciones is the payload of the options endpoint.
type Opciones struct {
	Sistemas []string `json:"sistemas"`
	Unidades []string `json:"unidades"`
	Familias []string `json:"familias"`
}

// LoadOpciones returns the dropdown options for catalog forms.
func LoadOpciones() Opciones {
	return Opciones{
		Sistemas: SistemaOptions,
		Unidades: UnidadOptions,
		Familias: FamiliaOptions(),
	}
}
