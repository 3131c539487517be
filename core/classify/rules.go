package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fletescerealeros/fletes/core/model"
)

// Patterns over the original-case text, for proper nouns and quantities.
var (
	nameRe     = regexp.MustCompile(`(?i)(?:soy|me llamo|mi nombre es)\s+([A-ZÁÉÍÓÚa-záéíóú\s]+?)(?:[,.]|\s+(?:camionero|productor|de\s))`)
	localityRe = regexp.MustCompile(`(?i)(?:de|en|desde)\s+(Pehuaj[oó]|Carlos\s*Casares|Bol[ií]var|Trenque\s*Lauquen|Tejedor|Henderson|Daireaux)`)
	portRe     = regexp.MustCompile(`(?i)(Rosario|Bah[ií]a\s*Blanca|Quequ[eé]n|San\s*Nicol[aá]s|San\s*Lorenzo)`)
	timeRe     = regexp.MustCompile(`(?i)(?:en|dentro de)\s+(\d+)\s*(hs?|horas?|min|minutos?)`)
	cerealRe   = regexp.MustCompile(`(?i)(trigo|ma[ií]z|soja|girasol|cebada|sorgo|avena)`)
	tonsRe     = regexp.MustCompile(`(?i)(\d+)\s*(?:tn|toneladas?|t\b)`)
	destRe     = regexp.MustCompile(`(?i)(?:a|hacia|para|destino)\s+(Rosario|Bah[ií]a\s*Blanca|Quequ[eé]n|San\s*Nicol[aá]s|San\s*Lorenzo)`)
)

// Patterns over the normalized (lowercase, accent-free) text.
var (
	carrierHintRe  = regexp.MustCompile(`camioner`)
	producerHintRe = regexp.MustCompile(`productor`)

	returnRe     = regexp.MustCompile(`(?:vuelvo|volviendo|regreso|salgo|saliendo|retorno|retornando|vacio).*?(?:de|desde)\s+(\w+)`)
	returnHintRe = regexp.MustCompile(`vuelvo|volviendo|retorno|vaci`)
	portHintRe   = regexp.MustCompile(`rosario|bahia|quequen|puerto|san nicolas|san lorenzo`)

	freightRe = regexp.MustCompile(`necesito|preciso|quiero\s+(?:sacar|enviar|mandar|mover|llevar)|busco.*flete|pedido.*flete`)

	offerRe   = regexp.MustCompile(`(?:ofrezco|tengo|hago|viajo|salgo).*(?:viaje|flete|carga|camion)`)
	headingRe = regexp.MustCompile(`(?:voy|yendo|llevo).*(?:a|hacia|para)\s+(?:rosario|bahia|quequen|puerto|san nicolas|san lorenzo)`)

	availRe = regexp.MustCompile(`que hay|hay algo|disponible|fletes.*disponibles|camiones.*disponibles|viajes`)
	helpRe  = regexp.MustCompile(`ayuda|help|como funciona|que puedo`)

	confirmStartRe  = regexp.MustCompile(`^(si|dale|va|ok|lo tomo|acepto|confirm[oa]?|de una|bueno)\b`)
	confirmPhraseRe = regexp.MustCompile(`(si|dale|va),? lo (tomo|quiero)`)
	confirmDoubleRe = regexp.MustCompile(`^sisi`)
	rejectRe        = regexp.MustCompile(`^(no|nop|paso|rechazo|no me interesa|no gracias)$`)
)

// defaultHomeLocality stands in when an actor has no registered locality.
const defaultHomeLocality = "Pehuajó"

func homeLocality(actor *model.Actor) string {
	if actor != nil && actor.Locality != "" {
		return actor.Locality
	}
	return defaultHomeLocality
}

func actorName(actor *model.Actor, fallback string) string {
	if actor != nil && actor.Name != "" {
		return actor.Name
	}
	return fallback
}

// register handles first-contact messages. It is the only branch evaluated
// for unknown senders.
func (e *RuleEngine) register(in input) Result {
	var name string
	if m := nameRe.FindStringSubmatch(in.raw); m != nil {
		name = strings.TrimSpace(m[1])
	}
	isCarrier := carrierHintRe.MatchString(in.norm)
	isProducer := producerHintRe.MatchString(in.norm)
	var locality string
	if m := localityRe.FindStringSubmatch(in.raw); m != nil {
		locality = m[1]
	}

	if name == "" && !isCarrier && !isProducer {
		return Result{Reply: "¡Hola! 👋 Soy el bot de FletesCerealeros. Conecto camioneros cerealeros con productores para aprovechar los retornos vacíos.\n\n¿Cómo te llamás? ¿Sos camionero 🚛 o productor 🌾? ¿De qué localidad?"}
	}

	roleWord := "camionero"
	if isProducer {
		roleWord = "productor"
	}

	if name == "" {
		return Result{Reply: "¡Hola! 👋 Bienvenido a FletesCerealeros.\n¿Cómo te llamás y de dónde sos? ¿Sos camionero o productor?"}
	}

	action := &model.Action{
		Kind: model.ActionRegisterUser,
		Data: model.ActionData{Name: name, Type: roleWord, Locality: locality},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "¡Hola %s! 🚛 Bienvenido a FletesCerealeros. Te registré como %s", name, roleWord)
	if locality != "" {
		fmt.Fprintf(&b, " de %s", locality)
	}
	b.WriteString(".\n\n")
	if roleWord == "camionero" {
		b.WriteString("Podés avisarme cuando vuelvas vacío de un puerto y te busco carga para el retorno. También podés ofrecer viajes.")
	} else {
		b.WriteString("Podés pedirme flete cuando necesites mover cereal y te busco un camionero disponible.")
	}
	return Result{Reply: b.String(), Action: action}
}

func (e *RuleEngine) emptyReturn(in input) (Result, bool) {
	m := returnRe.FindStringSubmatch(in.norm)
	if m == nil && !(returnHintRe.MatchString(in.norm) && portHintRe.MatchString(in.norm)) {
		return Result{}, false
	}

	origin := "Puerto"
	if pm := portRe.FindStringSubmatch(in.raw); pm != nil {
		origin = pm[1]
	} else if m != nil {
		origin = m[1]
	}

	var timeEstimate string
	if tm := timeRe.FindStringSubmatch(in.raw); tm != nil {
		timeEstimate = tm[1] + " " + tm[2]
	}

	destination := homeLocality(in.actor)
	action := &model.Action{
		Kind: model.ActionEmptyReturn,
		Data: model.ActionData{
			Origin:       origin,
			Destination:  destination,
			TimeEstimate: timeEstimate,
			Date:         model.DateToday,
		},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚛 ¡Registrado, %s! Retorno vacío: %s → %s", actorName(in.actor, "camionero"), origin, destination)
	if timeEstimate != "" {
		fmt.Fprintf(&b, " (llegada estimada en %s)", timeEstimate)
	}
	b.WriteString(".\n\nEstoy buscando si alguien necesita flete en tu ruta. Te aviso enseguida si encuentro algo. ✅")
	return Result{Reply: b.String(), Action: action}, true
}

func (e *RuleEngine) freightRequest(in input) (Result, bool) {
	if !freightRe.MatchString(in.norm) {
		return Result{}, false
	}

	var cereal string
	if m := cerealRe.FindStringSubmatch(in.raw); m != nil {
		cereal = strings.ToLower(m[1])
	}
	var tons float64
	if m := tonsRe.FindStringSubmatch(in.raw); m != nil {
		tons, _ = strconv.ParseFloat(m[1], 64)
	}
	destination := model.PlaceToConfirm
	if m := destRe.FindStringSubmatch(in.raw); m != nil {
		destination = m[1]
	}
	origin := model.PlaceToConfirm
	if in.actor != nil && in.actor.Locality != "" {
		origin = in.actor.Locality
	}

	action := &model.Action{
		Kind: model.ActionFreightRequest,
		Data: model.ActionData{
			Origin:      origin,
			Destination: destination,
			Cereal:      cereal,
			Tons:        tons,
			Date:        model.DateFlexible,
		},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🌾 ¡Anotado, %s! Pedido de flete", actorName(in.actor, "productor"))
	if tons > 0 {
		fmt.Fprintf(&b, ": %g tn", tons)
	}
	if cereal != "" {
		fmt.Fprintf(&b, " de %s", cereal)
	}
	fmt.Fprintf(&b, ", %s → %s", origin, destination)
	b.WriteString(".\n\nTe aviso cuando haya un camionero disponible en esa ruta. ✅")

	if cereal == "" || tons == 0 || destination == model.PlaceToConfirm {
		b.WriteString("\n\n📋 Me faltaría saber:")
		if cereal == "" {
			b.WriteString("\n• ¿Qué cereal?")
		}
		if tons == 0 {
			b.WriteString("\n• ¿Cuántas toneladas?")
		}
		if destination == model.PlaceToConfirm {
			b.WriteString("\n• ¿A qué puerto/destino?")
		}
	}
	return Result{Reply: b.String(), Action: action}, true
}

func (e *RuleEngine) capacityOffer(in input) (Result, bool) {
	if !offerRe.MatchString(in.norm) && !headingRe.MatchString(in.norm) {
		return Result{}, false
	}

	destination := model.PlaceToConfirm
	if m := portRe.FindStringSubmatch(in.raw); m != nil {
		destination = m[1]
	}
	origin := homeLocality(in.actor)

	action := &model.Action{
		Kind: model.ActionCapacityOffer,
		Data: model.ActionData{
			Origin:       origin,
			Destination:  destination,
			Date:         model.DateToday,
			CapacityTons: 30,
		},
	}

	reply := fmt.Sprintf("🚛 ¡Genial, %s! Registré tu viaje: %s → %s.\n\nSi algún productor necesita mover cereal en esa ruta, te aviso. ✅",
		actorName(in.actor, "camionero"), origin, destination)
	return Result{Reply: reply, Action: action}, true
}

func (e *RuleEngine) availability(in input) (Result, bool) {
	if !availRe.MatchString(in.norm) {
		return Result{}, false
	}
	action := &model.Action{
		Kind: model.ActionQueryAvailability,
		Data: model.ActionData{Scope: "all", Zone: homeLocality(in.actor)},
	}
	return Result{Reply: "📋 Te busco qué hay disponible. Dame un momento...", Action: action}, true
}

func (e *RuleEngine) help(in input) (Result, bool) {
	if !helpRe.MatchString(in.norm) {
		return Result{}, false
	}
	var body string
	if in.actor != nil && in.actor.Role == model.RoleProducer {
		body = "🌾 *Como productor podés:*\n• Pedir un flete: \"Necesito sacar 28 tn de soja a Rosario\"\n• Ver camiones disponibles: \"¿Qué hay disponible?\""
	} else {
		body = "🚛 *Como camionero podés:*\n• Avisar cuando volvés vacío: \"Vuelvo de Rosario en 2 hs\"\n• Ofrecer un viaje: \"Viajo a Bahía Blanca mañana\"\n• Ver fletes disponibles: \"¿Qué hay disponible?\""
	}
	reply := fmt.Sprintf("📖 *FletesCerealeros - ¿Cómo funciona?*\n\n%s\n\n🔄 Te notifico automáticamente cuando hay un match para tu ruta.", body)
	return Result{Reply: reply}, true
}

// confirm matches affirmative replies to a pending proposal. The reply text
// is deliberately empty: the proposal engine produces the resolving message
// once it knows whether a pending proposal actually exists.
func (e *RuleEngine) confirm(in input) (Result, bool) {
	trimmed := strings.TrimSpace(in.norm)
	if !confirmStartRe.MatchString(trimmed) &&
		!confirmPhraseRe.MatchString(in.norm) &&
		!confirmDoubleRe.MatchString(trimmed) {
		return Result{}, false
	}
	return Result{Action: &model.Action{Kind: model.ActionConfirmMatch}}, true
}

func (e *RuleEngine) reject(in input) (Result, bool) {
	if !rejectRe.MatchString(strings.TrimSpace(in.norm)) {
		return Result{}, false
	}
	return Result{
		Reply:  "Entendido. Rechazo la propuesta. Si cambiás de opinión avisame.",
		Action: &model.Action{Kind: model.ActionRejectMatch},
	}, true
}

func (e *RuleEngine) fallback(in input) Result {
	return Result{Reply: fmt.Sprintf("Hola %s! No entendí bien tu mensaje. 🤔\n\nPodés decirme cosas como:\n🚛 \"Vuelvo de Rosario en 2 horas\"\n🌾 \"Necesito flete para 30 tn de soja a Rosario\"\n📋 \"¿Qué hay disponible?\"\n\nO escribí \"ayuda\" para más info.", actorName(in.actor, ""))}
}
