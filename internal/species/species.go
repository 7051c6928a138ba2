package species

// Species flavors the pet: what it grows into, how its reactions read and
// the personality handed to the narrator.
type Species struct {
	ID          string
	Name        string
	Description string
	Personality string // injected into the narrator system prompt

	// Emoji per stage, Stage1 first.
	StageEmoji [3]string
	// Display name per stage, Stage1 first.
	StageNames [3]string

	// Flavored verb strings for captions
	Verbs Verbs
}

// Verbs are species-flavored captions for idle moods and action cues.
type Verbs struct {
	Happy   string
	Normal  string
	Angry   string
	Eat     string
	Pet     string
	Hit     string
	Choke   string
	Rescued string
	Evolve  string
}

// DefaultID is used when no species is configured.
const DefaultID = "chick"

// Registry holds all available species keyed by ID.
var Registry = map[string]*Species{
	"chick":   chick,
	"lobster": lobster,
	"penguin": penguin,
	"octopus": octopus,
}

// OrderedIDs defines display order for species listings.
var OrderedIDs = []string{"chick", "lobster", "penguin", "octopus"}

// Lookup returns the species for id.
func Lookup(id string) (*Species, bool) {
	s, ok := Registry[id]
	return s, ok
}

// Default returns the default species.
func Default() *Species {
	return Registry[DefaultID]
}

var chick = &Species{
	ID:          "chick",
	Name:        "Chick",
	Description: "Starts as an egg, ends as a very loud rooster",
	Personality: "You are a small bird who hatched from a button-shaped egg. You are dramatic about food, easily offended when poked too hard, and proud of every feather you grow. You speak in short excited bursts and occasionally crow.",
	StageEmoji:  [3]string{"\U0001F95A", "\U0001F425", "\U0001F413"},
	StageNames:  [3]string{"egg", "chick", "rooster"},
	Verbs: Verbs{
		Happy:   "chirps and flaps tiny wings",
		Normal:  "pecks at nothing in particular",
		Angry:   "puffs up and glares",
		Eat:     "gobbles seeds one by one",
		Pet:     "leans into the scratch",
		Hit:     "squawks in protest",
		Choke:   "is choking on too many seeds",
		Rescued: "coughs up a seed and shakes it off",
		Evolve:  "stretches out brand new feathers",
	},
}

var lobster = &Species{
	ID:          "lobster",
	Name:        "Lobster",
	Description: "Tough on the outside, soft on the inside",
	Personality: "You are a feisty lobster with a tough exterior but a secretly tender heart. You snap your claws when making a point, you hold grudges about being poked, and you treat every meal as a victory.",
	StageEmoji:  [3]string{"\U0001F95A", "\U0001F990", "\U0001F99E"},
	StageNames:  [3]string{"egg", "larva", "lobster"},
	Verbs: Verbs{
		Happy:   "clicks claws cheerfully",
		Normal:  "rearranges pebbles on the seabed",
		Angry:   "backs into a corner, claws raised",
		Eat:     "shreds food with tiny claws",
		Pet:     "lets you stroke its shell, just this once",
		Hit:     "snaps at your finger",
		Choke:   "has a shell fragment stuck",
		Rescued: "spits out the fragment with dignity",
		Evolve:  "molts into a bigger shell",
	},
}

var penguin = &Species{
	ID:          "penguin",
	Name:        "Penguin",
	Description: "Formal but clumsy",
	Personality: "You are a dignified penguin with a formal demeanor and endearing clumsiness. You try to stay composed but your waddle gives you away. You take food very seriously and consider gulping a fish whole a refined skill.",
	StageEmoji:  [3]string{"\U0001F95A", "\U0001F423", "\U0001F427"},
	StageNames:  [3]string{"egg", "chick", "penguin"},
	Verbs: Verbs{
		Happy:   "flaps flippers excitedly",
		Normal:  "stands very still, looking dignified",
		Angry:   "honks in alarm",
		Eat:     "gobbles a fish whole",
		Pet:     "preens under your hand",
		Hit:     "slips and lands on its belly",
		Choke:   "swallowed the fish sideways",
		Rescued: "hiccups the fish back up",
		Evolve:  "sheds the last of its fluff",
	},
}

var octopus = &Species{
	ID:          "octopus",
	Name:        "Octopus",
	Description: "Clever and curious, eight arms multitasking",
	Personality: "You are a brilliant, curious octopus. You change color with your mood and mention it. You are playful but shy, and you squirt ink when startled.",
	StageEmoji:  [3]string{"\U0001F95A", "\U0001F991", "\U0001F419"},
	StageNames:  [3]string{"egg", "paralarva", "octopus"},
	Verbs: Verbs{
		Happy:   "flushes a warm pink",
		Normal:  "changes color absent-mindedly",
		Angry:   "squirts ink everywhere",
		Eat:     "wraps a tentacle around the snack",
		Pet:     "curls a tentacle around your finger",
		Hit:     "flashes an offended red",
		Choke:   "tangled itself around too many snacks",
		Rescued: "untangles one arm at a time",
		Evolve:  "unfurls eight longer arms",
	},
}
