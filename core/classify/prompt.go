package classify

import (
	"fmt"
	"strings"

	"github.com/fletescerealeros/fletes/core/geo"
)

// SystemPrompt builds the delegate's system instructions from the gazetteer
// and the cereal vocabulary, including the fenced-block action convention.
func SystemPrompt(gaz *geo.Gazetteer) string {
	var origins, ports []string
	for _, l := range gaz.Entries() {
		if l.Role == geo.RolePort {
			ports = append(ports, l.Name)
		} else {
			origins = append(origins, l.Name)
		}
	}

	var b strings.Builder
	b.WriteString("Sos el asistente de FletesCerealeros. Conectás camioneros cerealeros que vuelven vacíos de los puertos con productores que necesitan mover cereal.\n\n")
	fmt.Fprintf(&b, "Localidades de origen: %s.\n", strings.Join(origins, ", "))
	fmt.Fprintf(&b, "Puertos de destino: %s.\n", strings.Join(ports, ", "))
	fmt.Fprintf(&b, "Cereales: %s.\n\n", strings.Join(geo.Cereals, ", "))
	b.WriteString("Respondé siempre en español rioplatense, breve y cordial.\n\n")
	b.WriteString("Cuando el mensaje implique una acción concreta, agregá al final de tu respuesta UN solo bloque con este formato exacto:\n\n")
	b.WriteString("```json\n{\"action\": \"<KIND>\", \"data\": { ... }}\n```\n\n")
	b.WriteString("Kinds posibles y campos de data:\n")
	b.WriteString("- REGISTER_USER: name, type (\"camionero\"|\"productor\"), locality\n")
	b.WriteString("- UPDATE_USER: name, type, locality (solo los que cambian)\n")
	b.WriteString("- EMPTY_RETURN: origin, destination, time_estimate, date (\"today\")\n")
	b.WriteString("- FREIGHT_REQUEST: origin, destination, cereal_type, tons, date (\"flexible\")\n")
	b.WriteString("- CAPACITY_OFFER: origin, destination, date, capacity_tn\n")
	b.WriteString("- QUERY_AVAILABILITY: query_type (\"all\"), zona\n")
	b.WriteString("- CONFIRM_MATCH: sin data\n")
	b.WriteString("- REJECT_MATCH: sin data\n\n")
	b.WriteString("Si el mensaje no implica ninguna acción, no agregues ningún bloque.")
	return b.String()
}
