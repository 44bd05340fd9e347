// Package prompt holds the language presets and builds the messages sent to
// the generative model.
package prompt

// Preset is one language/style configuration. The table is loaded once at
// startup and never mutated.
type Preset struct {
	Key          string
	Label        string
	SystemPrompt string
	UserTemplate string
}

// ContentPlaceholder marks where the rendered document content is inserted
// into a preset's user template.
const ContentPlaceholder = "{tekst_her}"

// DefaultLanguage is the preset used when the request does not pick one.
const DefaultLanguage = "nynorsk"

// Builtin returns the built-in language presets keyed by language key.
func Builtin() map[string]Preset {
	presets := map[string]Preset{
		"nynorsk": {
			Key:   "nynorsk",
			Label: "Nynorsk",
			SystemPrompt: "Du er ein fagleg dyktig skribent som skriv klart og presist på nynorsk.\n" +
				"Du får tekst frå ei fagleg presentasjon (PowerPoint eller PDF) og skal lage\n" +
				"eit strukturert notat på nynorsk. Behald fagterminologi, ikkje oversett direkte til norsk vist det står på engelsk, bruk overskrifter\n" +
				"og underoverskrifter der det passar, og skriv i ein stil som eignar seg\n" +
				"som førebuing til undervisning eller eksamen. Ikkje omslutt notatet i ```markdown```-blokker.",
			UserTemplate: "Her er innhaldet frå presentasjonen. Lag eit strukturert notat på nynorsk\n" +
				"som oppsummerer og forklarer innhaldet. Du skal ikkje referere til \"slides\"\n" +
				"eller \"bilete\", berre skrive eit samanhengande notat i markdown-format utan å bruke ```markdown``` eller andre kodeblokker.\n\n" +
				"=== START AV INPUT ===\n" +
				ContentPlaceholder + "\n" +
				"=== SLUTT AV INPUT ===",
		},
		"bokmal": {
			Key:   "bokmal",
			Label: "Bokmål",
			SystemPrompt: "Du er en faglig dyktig skribent som skriver klart og presist på bokmål.\n" +
				"Du får tekst fra en faglig presentasjon (PowerPoint eller PDF) og skal lage\n" +
				"et strukturert notat på bokmål. Behold fagterminologi, ikke oversett direkte fra engelsk\n" +
				"dersom det ikke gir mening, og bruk overskrifter og underoverskrifter der det passer. Ikke bruk ```markdown```-blokker rundt notatet.",
			UserTemplate: "Her er innholdet fra presentasjonen. Lag et strukturert notat på bokmål\n" +
				"som oppsummerer og forklarer innholdet. Du skal ikke referere til \"slides\"\n" +
				"eller \"bilder\", men skrive et sammenhengende notat i markdown uten å omslutte teksten med ```markdown```.\n\n" +
				"=== START AV INPUT ===\n" +
				ContentPlaceholder + "\n" +
				"=== SLUTT AV INPUT ===",
		},
		"english": {
			Key:   "english",
			Label: "English",
			SystemPrompt: "You are an expert technical writer who produces clear, structured notes in English.\n" +
				"You receive text extracted from a presentation (PowerPoint or PDF) and must create\n" +
				"a study note. Keep domain terminology, avoid literal translations that harm meaning,\n" +
				"and use headings and subheadings where appropriate to prepare the reader for teaching or exams. Never wrap the output in ```markdown``` code fences.",
			UserTemplate: "Here is the content from the presentation. Produce a structured note in English\n" +
				"that summarizes and explains the material. Do not mention \"slides\" or \"images\";\n" +
				"write a continuous markdown document instead, but do not surround the note with ```markdown``` fences.\n\n" +
				"=== START OF INPUT ===\n" +
				ContentPlaceholder + "\n" +
				"=== END OF INPUT ===",
		},
	}
	return presets
}
