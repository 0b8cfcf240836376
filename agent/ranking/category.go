package ranking

import "strings"

type Category string

const (
	CategoryFood       Category = "food"
	CategoryEvents     Category = "events"
	CategoryServices   Category = "services"
	CategoryShopping   Category = "shopping"
	CategoryHealth     Category = "health"
	CategoryTechnology Category = "technology"
)

type categoryTerms struct {
	category Category
	terms    []string
}

// Order matters: detection returns the first category with a hit.
var categoryTable = []categoryTerms{
	{CategoryFood, []string{
		"restaurante", "restaurant", "comida", "comer", "almuerzo", "desayuno", "cenar",
		"cafeteria", "cafe", "pizza", "hamburguesa", "panaderia", "pasteleria", "postre",
		"pupusa", "mariscos", "food",
	}},
	{CategoryEvents, []string{
		"evento", "event", "fiesta", "party", "boda", "wedding", "celebracion", "cumpleaños",
		"decoracion", "banquete", "quinceañera", "flores", "floristeria",
	}},
	{CategoryServices, []string{
		"servicio", "service", "reparacion", "mantenimiento", "limpieza", "plomero",
		"electricista", "taller", "mecanico", "lavanderia", "abogado", "contador",
	}},
	{CategoryShopping, []string{
		"tienda", "store", "shop", "compra", "ropa", "zapato", "supermercado", "mercado",
		"boutique", "regalo", "ferreteria",
	}},
	{CategoryHealth, []string{
		"salud", "health", "medico", "doctor", "farmacia", "clinica", "hospital", "dentista",
		"odontolog", "gimnasio", "laboratorio",
	}},
	{CategoryTechnology, []string{
		"tecnologia", "technology", "computadora", "laptop", "celular", "telefono",
		"internet", "software", "electronica",
	}},
}

// DetectCategory returns the first category whose trigger terms appear in the query.
func DetectCategory(query string) (Category, bool) {
	q := strings.ToLower(query)
	if strings.TrimSpace(q) == "" {
		return "", false
	}
	for _, entry := range categoryTable {
		for _, term := range entry.terms {
			if strings.Contains(q, term) {
				return entry.category, true
			}
		}
	}
	return "", false
}

// Terms returns the representative terms of a category.
func Terms(c Category) []string {
	for _, entry := range categoryTable {
		if entry.category == c {
			return append([]string(nil), entry.terms...)
		}
	}
	return nil
}

func Categories() []Category {
	out := make([]Category, 0, len(categoryTable))
	for _, entry := range categoryTable {
		out = append(out, entry.category)
	}
	return out
}
