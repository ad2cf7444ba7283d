// internal/codes/wordlist.go
package codes

// DefaultWords are short, easy-to-shout session codes.
var DefaultWords = []string{
	"APPLE", "BANJO", "BACON", "BISON", "BLIMP", "BONGO", "CAMEL", "CANDY",
	"CHAOS", "CHEEK", "CIDER", "CLOUD", "COBRA", "COMET", "CRANE", "DISCO",
	"DONUT", "DRAGON", "EAGLE", "EMBER", "FABLE", "FERRY", "FIZZY", "FLUTE",
	"FUDGE", "GECKO", "GHOST", "GIANT", "GRAPE", "GUMBO", "HIPPO", "HONEY",
	"IGLOO", "JELLY", "JOKER", "KAZOO", "KOALA", "LASER", "LEMON", "LLAMA",
	"MANGO", "MAPLE", "MOOSE", "NACHO", "NINJA", "OCEAN", "OLIVE", "OTTER",
	"PANDA", "PEACH", "PIANO", "PIXEL", "PIZZA", "PLUTO", "QUACK", "QUEEN",
	"RADAR", "RAVEN", "ROBOT", "SALSA", "SHARK", "SLOTH", "SPOON", "SQUID",
	"TACO", "TANGO", "TIGER", "TOAST", "TULIP", "TURBO", "UNCLE", "VIPER",
	"WAFFLE", "WALRUS", "WHALE", "WIZARD", "YETI", "YOYO", "ZEBRA", "ZIGZAG",
}
