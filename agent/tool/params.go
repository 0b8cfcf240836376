package tool

const (
	ToolSmartSearch       = "buscar_inteligente"
	ToolSearch            = "buscar_comercio"
	ToolList              = "listar_comercios"
	ToolDetail            = "comercio_detalle_completo"
	ToolSearchByCategory  = "buscar_por_categoria"
	ToolContact           = "obtener_contacto_comercio"
	ToolVerified          = "comercios_verificados"
	ToolSearchByLocation  = "buscar_por_ubicacion"
	ToolExploreCategories = "explorar_categorias_disponibles"
	ToolShare             = "compartir_comercio_con_usuario"
)

const (
	defaultLimit        = 10
	defaultExploreLimit = 30
	maxLimit            = 50
	searchLimit         = 5
	candidatePage       = 100
	maxCandidates       = 2000
)

// Each tool decodes its input into exactly one of the structs below.
// The json tags double as the canonical cache-key shape.

type SmartSearchParams struct {
	Terms []string `mapstructure:"terminos" json:"terminos"`
	Limit int      `mapstructure:"limite" json:"limite"`
}

func (SmartSearchParams) ToolName() string { return ToolSmartSearch }

type SearchParams struct {
	ID    string `mapstructure:"id" json:"id,omitempty"`
	Slug  string `mapstructure:"slug" json:"slug,omitempty"`
	Name  string `mapstructure:"nombre" json:"nombre,omitempty"`
	Query string `mapstructure:"busqueda" json:"busqueda,omitempty"`
}

func (SearchParams) ToolName() string { return ToolSearch }

type ListParams struct {
	Verified *bool `mapstructure:"verificado" json:"verificado,omitempty"`
	Featured *bool `mapstructure:"destacado" json:"destacado,omitempty"`
	Limit    int   `mapstructure:"limite" json:"limite"`
	Offset   int   `mapstructure:"offset" json:"offset"`
}

func (ListParams) ToolName() string { return ToolList }

type DetailParams struct {
	ID string `mapstructure:"id" json:"id"`
}

func (DetailParams) ToolName() string { return ToolDetail }

type CategoryParams struct {
	Tag   string `mapstructure:"tag" json:"tag"`
	Limit int    `mapstructure:"limite" json:"limite"`
}

func (CategoryParams) ToolName() string { return ToolSearchByCategory }

type ContactParams struct {
	ID string `mapstructure:"id" json:"id"`
}

func (ContactParams) ToolName() string { return ToolContact }

type VerifiedParams struct {
	Limit int `mapstructure:"limite" json:"limite"`
}

func (VerifiedParams) ToolName() string { return ToolVerified }

type LocationParams struct {
	City    string `mapstructure:"ciudad" json:"ciudad,omitempty"`
	Address string `mapstructure:"direccion" json:"direccion,omitempty"`
	Limit   int    `mapstructure:"limite" json:"limite"`
}

func (LocationParams) ToolName() string { return ToolSearchByLocation }

type ExploreParams struct {
	Limit int `mapstructure:"limite" json:"limite"`
}

func (ExploreParams) ToolName() string { return ToolExploreCategories }

type ShareParams struct {
	ID   string `mapstructure:"id" json:"id"`
	Slug string `mapstructure:"slug" json:"slug"`
	Name string `mapstructure:"nombre" json:"nombre"`
}

func (ShareParams) ToolName() string { return ToolShare }

func clampLimit(n, def int) int {
	switch {
	case n <= 0:
		return def
	case n > maxLimit:
		return maxLimit
	default:
		return n
	}
}
