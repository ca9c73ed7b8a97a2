package tts

import "sort"

// voices is the catalog accepted by the synthesis backend, with the short
// description shown to users.
var voices = map[string]string{
	"Zephyr":        "Bright",
	"Puck":          "Upbeat",
	"Charon":        "Informative",
	"Kore":          "Firm",
	"Fenrir":        "Excitable",
	"Leda":          "Youthful",
	"Orus":          "Firm",
	"Aoede":         "Breezy",
	"Callirhoe":     "Easy-going",
	"Autonoe":       "Bright",
	"Enceladus":     "Breathy",
	"Iapetus":       "Clear",
	"Umbriel":       "Easy-going",
	"Algieba":       "Smooth",
	"Despina":       "Smooth",
	"Erinome":       "Clear",
	"Algenib":       "Gravelly",
	"Rasalgethi":    "Informative",
	"Laomedeia":     "Upbeat",
	"Achernar":      "Soft",
	"Alnilam":       "Firm",
	"Schedar":       "Even",
	"Gacrux":        "Mature",
	"Pulcherrima":   "Forward",
	"Achird":        "Friendly",
	"Zubenelgenubi": "Casual",
	"Vindemiatrix":  "Gentle",
	"Sadachbia":     "Lively",
	"Sadaltager":    "Knowledgeable",
	"Sulafar":       "Warm",
}

// Voice is one entry of the catalog.
type Voice struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// KnownVoice reports whether name is in the catalog.
func KnownVoice(name string) bool {
	_, ok := voices[name]
	return ok
}

// Voices returns the catalog sorted by name.
func Voices() []Voice {
	out := make([]Voice, 0, len(voices))
	for name, desc := range voices {
		out = append(out, Voice{Name: name, Description: desc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
