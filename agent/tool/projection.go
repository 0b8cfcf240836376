package tool

import (
	"fmt"
	"strings"

	"github.com/tanpawarit/Chative-Local-Concierge/agent/ranking"
	"github.com/tanpawarit/Chative-Local-Concierge/agent/store"
)

const unavailable = "No disponible"

// Summary is the list/search projection of a record.
type Summary struct {
	ID          string   `json:"id"`
	Nombre      string   `json:"nombre"`
	Slug        string   `json:"slug"`
	Descripcion string   `json:"descripcion"`
	Direccion   string   `json:"direccion"`
	Telefono    string   `json:"telefono,omitempty"`
	WhatsApp    string   `json:"whatsapp,omitempty"`
	Verificado  bool     `json:"verificado"`
	Destacado   bool     `json:"destacado"`
	Tags        []string `json:"tags,omitempty"`
	Vistas      int64    `json:"vistas"`
	Relevancia  int      `json:"relevancia,omitempty"`
}

type Location struct {
	Latitud  *float64 `json:"latitud"`
	Longitud *float64 `json:"longitud"`
}

type LocationSummary struct {
	ID          string   `json:"id"`
	Nombre      string   `json:"nombre"`
	Descripcion string   `json:"descripcion"`
	Direccion   string   `json:"direccion"`
	Ciudad      string   `json:"ciudad,omitempty"`
	Telefono    string   `json:"telefono,omitempty"`
	WhatsApp    string   `json:"whatsapp,omitempty"`
	Ubicacion   Location `json:"ubicacion"`
	Verificado  bool     `json:"verificado"`
}

type DetailContact struct {
	Direccion string `json:"direccion"`
	Telefono  string `json:"telefono,omitempty"`
	WhatsApp  string `json:"whatsapp,omitempty"`
	Email     string `json:"email,omitempty"`
}

type Social struct {
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Website   string `json:"website,omitempty"`
	TikTok    string `json:"tiktok,omitempty"`
	YouTube   string `json:"youtube,omitempty"`
}

type Stats struct {
	Vistas               int64   `json:"vistas"`
	Calificaciones       int     `json:"calificaciones"`
	CalificacionPromedio float64 `json:"calificacion_promedio"`
}

type Detail struct {
	Encontrado      bool          `json:"encontrado"`
	ID              string        `json:"id"`
	Nombre          string        `json:"nombre"`
	Slug            string        `json:"slug"`
	Descripcion     string        `json:"descripcion"`
	Contacto        DetailContact `json:"contacto"`
	RedesSociales   Social        `json:"redes_sociales"`
	Horario         string        `json:"horario"`
	Ciudad          string        `json:"ciudad,omitempty"`
	Ubicacion       Location      `json:"ubicacion"`
	Verificado      bool          `json:"verificado"`
	Destacado       bool          `json:"destacado"`
	Estadisticas    Stats         `json:"estadisticas"`
	Tags            []string      `json:"tags"`
	ImagenDestacada string        `json:"imagen_destacada,omitempty"`
	Imagenes        []string      `json:"imagenes"`
}

// NotFound is returned, not raised, when an id matches no active record.
type NotFound struct {
	Encontrado bool   `json:"encontrado"`
	ID         string `json:"id"`
	Mensaje    string `json:"mensaje"`
}

type Contact struct {
	Telefono  string `json:"telefono"`
	WhatsApp  string `json:"whatsapp"`
	Email     string `json:"email"`
	Direccion string `json:"direccion"`
}

type ContactSocial struct {
	Facebook  string `json:"facebook"`
	Instagram string `json:"instagram"`
	Website   string `json:"website"`
	TikTok    string `json:"tiktok,omitempty"`
	YouTube   string `json:"youtube,omitempty"`
}

type ContactCard struct {
	Encontrado    bool          `json:"encontrado"`
	ID            string        `json:"id"`
	Nombre        string        `json:"nombre"`
	Contacto      Contact       `json:"contacto"`
	RedesSociales ContactSocial `json:"redes_sociales"`
	Horario       string        `json:"horario"`
	Verificado    bool          `json:"verificado"`
}

type CategoryCount struct {
	Categoria         string `json:"categoria"`
	CantidadComercios int    `json:"cantidad_comercios"`
}

type CategoryOverview struct {
	TotalCategorias     int             `json:"total_categorias"`
	CategoriasPopulares []CategoryCount `json:"categorias_populares"`
	Mensaje             string          `json:"mensaje"`
}

func summarize(b store.Business, excerpt, score int) Summary {
	return Summary{
		ID:          b.ID,
		Nombre:      b.Name,
		Slug:        b.Slug,
		Descripcion: ranking.Excerpt(b.Description, excerpt),
		Direccion:   orDefault(b.Address, unavailable),
		Telefono:    b.Phone,
		WhatsApp:    b.WhatsApp,
		Verificado:  b.Verified,
		Destacado:   b.Featured,
		Tags:        b.Tags,
		Vistas:      b.Views,
		Relevancia:  score,
	}
}

func summarizeAll(records []store.Business, excerpt int) []Summary {
	out := make([]Summary, 0, len(records))
	for _, b := range records {
		out = append(out, summarize(b, excerpt, 0))
	}
	return out
}

func summarizeScored(scored []ranking.Scored, excerpt int) []Summary {
	out := make([]Summary, 0, len(scored))
	for _, s := range scored {
		out = append(out, summarize(s.Record, excerpt, s.Score))
	}
	return out
}

func locate(b store.Business) LocationSummary {
	return LocationSummary{
		ID:          b.ID,
		Nombre:      b.Name,
		Descripcion: ranking.Excerpt(b.Description, ranking.ExcerptCompact),
		Direccion:   orDefault(b.Address, unavailable),
		Ciudad:      b.City,
		Telefono:    b.Phone,
		WhatsApp:    b.WhatsApp,
		Ubicacion:   Location{Latitud: b.Latitude, Longitud: b.Longitude},
		Verificado:  b.Verified,
	}
}

func detail(b store.Business) Detail {
	tags := b.Tags
	if tags == nil {
		tags = []string{}
	}
	images := b.Images
	if images == nil {
		images = []string{}
	}
	return Detail{
		Encontrado:  true,
		ID:          b.ID,
		Nombre:      b.Name,
		Slug:        b.Slug,
		Descripcion: ranking.Excerpt(b.Description, ranking.ExcerptDetail),
		Contacto: DetailContact{
			Direccion: orDefault(b.Address, unavailable),
			Telefono:  b.Phone,
			WhatsApp:  b.WhatsApp,
			Email:     b.Email,
		},
		RedesSociales: Social{
			Facebook:  b.Facebook,
			Instagram: b.Instagram,
			Website:   b.Website,
			TikTok:    b.TikTok,
			YouTube:   b.YouTube,
		},
		Horario:    hoursRange(b),
		Ciudad:     b.City,
		Ubicacion:  Location{Latitud: b.Latitude, Longitud: b.Longitude},
		Verificado: b.Verified,
		Destacado:  b.Featured,
		Estadisticas: Stats{
			Vistas:               b.Views,
			Calificaciones:       b.RatingCount,
			CalificacionPromedio: b.RatingAvg,
		},
		Tags:            tags,
		ImagenDestacada: b.FeaturedImage,
		Imagenes:        images,
	}
}

func contactCard(b store.Business) ContactCard {
	whatsapp := unavailable
	if w := strings.TrimSpace(b.WhatsApp); w != "" {
		whatsapp = "+" + strings.TrimPrefix(w, "+")
	}
	return ContactCard{
		Encontrado: true,
		ID:         b.ID,
		Nombre:     b.Name,
		Contacto: Contact{
			Telefono:  orDefault(b.Phone, unavailable),
			WhatsApp:  whatsapp,
			Email:     orDefault(b.Email, unavailable),
			Direccion: orDefault(b.Address, unavailable),
		},
		RedesSociales: ContactSocial{
			Facebook:  orDefault(b.Facebook, unavailable),
			Instagram: orDefault(b.Instagram, unavailable),
			Website:   orDefault(b.Website, unavailable),
			TikTok:    b.TikTok,
			YouTube:   b.YouTube,
		},
		Horario:    hoursLine(b),
		Verificado: b.Verified,
	}
}

func notFound(id string) NotFound {
	return NotFound{Encontrado: false, ID: id, Mensaje: "No se encontró un comercio activo con ese id"}
}

func hoursRange(b store.Business) string {
	if b.OpeningHour == nil || b.ClosingHour == nil {
		return "No especificado"
	}
	return fmt.Sprintf("%d:00 - %d:00", *b.OpeningHour, *b.ClosingHour)
}

func hoursLine(b store.Business) string {
	if b.OpeningHour == nil || b.ClosingHour == nil {
		return "Horario no especificado"
	}
	return fmt.Sprintf("De %d:00 a %d:00", *b.OpeningHour, *b.ClosingHour)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
