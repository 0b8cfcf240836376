package tool

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"

	contractx "github.com/tanpawarit/Chative-Local-Concierge/agent/contract"
)

type handlerFunc func(ctx context.Context, p contractx.ToolParams) (value any, count int, err error)

// Tool is one catalog entry: its model-facing definition plus the typed handler behind it.
type Tool struct {
	Def       contractx.ToolDefinition
	Kind      contractx.ToolKind
	Cacheable bool

	schema *gojsonschema.Schema
	decode func(args map[string]any) (contractx.ToolParams, error)
	handle handlerFunc
}

func define[P contractx.ToolParams](def contractx.ToolDefinition, kind contractx.ToolKind, cacheable bool, h func(context.Context, P) (any, int, error)) *Tool {
	return &Tool{
		Def:       def,
		Kind:      kind,
		Cacheable: cacheable,
		decode: func(args map[string]any) (contractx.ToolParams, error) {
			var p P
			if err := decodeParams(args, &p); err != nil {
				return nil, err
			}
			return p, nil
		},
		handle: func(ctx context.Context, p contractx.ToolParams) (any, int, error) {
			typed, ok := p.(P)
			if !ok {
				return nil, 0, fmt.Errorf("%w: %s cannot take %T", contractx.ErrValidation, def.Name, p)
			}
			return h(ctx, typed)
		},
	}
}

func (t *Tool) compile() error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(t.Def.JSONSchema()))
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", t.Def.Name, err)
	}
	t.schema = schema
	return nil
}

// prepare validates raw arguments, fills defaults and decodes the typed params.
func (t *Tool) prepare(args map[string]any) (contractx.ToolParams, error) {
	result, err := t.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", contractx.ErrValidation, t.Def.Name, err)
	}
	if !result.Valid() {
		msgs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			msgs[i] = desc.String()
		}
		return nil, fmt.Errorf("%w: %s: %v", contractx.ErrValidation, t.Def.Name, msgs)
	}

	withDefaults := make(map[string]any, len(args)+len(t.Def.Params))
	for k, v := range args {
		withDefaults[k] = v
	}
	for _, p := range t.Def.Params {
		if _, ok := withDefaults[p.Name]; !ok && p.Default != nil {
			withDefaults[p.Name] = p.Default
		}
	}

	params, err := t.decode(withDefaults)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", contractx.ErrValidation, t.Def.Name, err)
	}
	return params, nil
}

func decodeParams(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}

func catalog(h *handlers) []*Tool {
	return []*Tool{
		define(contractx.ToolDefinition{
			Name: ToolSmartSearch,
			Desc: "Búsqueda inteligente con varios términos. Úsala cuando el usuario describe lo que busca con varias palabras o sinónimos.",
			Params: []contractx.ParamSpec{
				{Name: "terminos", Type: contractx.ParamArray, ItemType: contractx.ParamString, Desc: "Términos de búsqueda, por ejemplo [\"pizza\", \"italiana\"]", Required: true},
				{Name: "limite", Type: contractx.ParamInteger, Desc: "Número máximo de resultados", Default: defaultLimit},
			},
		}, contractx.ToolKindSearch, true, h.smartSearch),

		define(contractx.ToolDefinition{
			Name: ToolSearch,
			Desc: "Busca comercios por id, slug, nombre o texto libre. Devuelve hasta 5 resultados ordenados por relevancia.",
			Params: []contractx.ParamSpec{
				{Name: "id", Type: contractx.ParamString, Desc: "Identificador exacto del comercio"},
				{Name: "slug", Type: contractx.ParamString, Desc: "Slug exacto del comercio"},
				{Name: "nombre", Type: contractx.ParamString, Desc: "Nombre o parte del nombre"},
				{Name: "busqueda", Type: contractx.ParamString, Desc: "Texto libre, por ejemplo \"tacos al pastor\""},
			},
		}, contractx.ToolKindSearch, true, h.search),

		define(contractx.ToolDefinition{
			Name: ToolList,
			Desc: "Lista comercios activos con filtros opcionales, ordenados por popularidad.",
			Params: []contractx.ParamSpec{
				{Name: "verificado", Type: contractx.ParamBoolean, Desc: "Solo comercios verificados"},
				{Name: "destacado", Type: contractx.ParamBoolean, Desc: "Solo comercios destacados"},
				{Name: "limite", Type: contractx.ParamInteger, Desc: "Número máximo de resultados", Default: defaultLimit},
				{Name: "offset", Type: contractx.ParamInteger, Desc: "Resultados a omitir para paginar", Default: 0},
			},
		}, contractx.ToolKindOther, true, h.list),

		define(contractx.ToolDefinition{
			Name: ToolDetail,
			Desc: "Obtiene toda la información de un comercio: descripción, contacto, redes, horario y estadísticas.",
			Params: []contractx.ParamSpec{
				{Name: "id", Type: contractx.ParamString, Desc: "Identificador del comercio", Required: true},
			},
		}, contractx.ToolKindOther, true, h.detail),

		define(contractx.ToolDefinition{
			Name: ToolSearchByCategory,
			Desc: "Busca comercios cuya etiqueta contiene el texto indicado, por ejemplo \"restaurante\" o \"eventos\".",
			Params: []contractx.ParamSpec{
				{Name: "tag", Type: contractx.ParamString, Desc: "Etiqueta o categoría", Required: true},
				{Name: "limite", Type: contractx.ParamInteger, Desc: "Número máximo de resultados", Default: defaultLimit},
			},
		}, contractx.ToolKindSearch, true, h.category),

		define(contractx.ToolDefinition{
			Name: ToolContact,
			Desc: "Obtiene teléfono, WhatsApp, email, dirección, redes sociales y horario de un comercio.",
			Params: []contractx.ParamSpec{
				{Name: "id", Type: contractx.ParamString, Desc: "Identificador del comercio", Required: true},
			},
		}, contractx.ToolKindOther, true, h.contact),

		define(contractx.ToolDefinition{
			Name: ToolVerified,
			Desc: "Lista los comercios verificados más populares.",
			Params: []contractx.ParamSpec{
				{Name: "limite", Type: contractx.ParamInteger, Desc: "Número máximo de resultados", Default: defaultLimit},
			},
		}, contractx.ToolKindOther, true, h.verified),

		define(contractx.ToolDefinition{
			Name: ToolSearchByLocation,
			Desc: "Busca comercios por ciudad o por parte de la dirección. Indica ciudad o direccion.",
			Params: []contractx.ParamSpec{
				{Name: "ciudad", Type: contractx.ParamString, Desc: "Ciudad o zona"},
				{Name: "direccion", Type: contractx.ParamString, Desc: "Fragmento de la dirección"},
				{Name: "limite", Type: contractx.ParamInteger, Desc: "Número máximo de resultados", Default: defaultLimit},
			},
		}, contractx.ToolKindSearch, true, h.location),

		define(contractx.ToolDefinition{
			Name: ToolExploreCategories,
			Desc: "Muestra las categorías con más comercios. Úsala cuando las búsquedas no encuentran resultados.",
			Params: []contractx.ParamSpec{
				{Name: "limite", Type: contractx.ParamInteger, Desc: "Número de categorías a devolver", Default: defaultExploreLimit},
			},
		}, contractx.ToolKindExplore, true, h.explore),

		define(contractx.ToolDefinition{
			Name: ToolShare,
			Desc: "Comparte un comercio con el usuario. Llámala siempre que presentes un comercio concreto.",
			Params: []contractx.ParamSpec{
				{Name: "id", Type: contractx.ParamString, Desc: "Identificador del comercio", Required: true},
				{Name: "slug", Type: contractx.ParamString, Desc: "Slug del comercio", Required: true},
				{Name: "nombre", Type: contractx.ParamString, Desc: "Nombre del comercio", Required: true},
			},
		}, contractx.ToolKindShare, false, h.share),
	}
}
