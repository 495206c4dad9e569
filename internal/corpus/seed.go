package corpus

// DefaultOffTopic lists greetings, classroom logistics and leisure topics.
// Any of these in a segment vetoes an on-topic verdict.
var DefaultOffTopic = []string{
	// Greetings and small talk.
	"hello everyone", "good morning", "good afternoon", "how are you",
	"how was your",
	// Logistics.
	"lunch", "break time", "holiday", "homework", "assignment", "marks",
	"exam", "attendance",
	// Leisure.
	"weather", "movie", "game", "sports", "cricket", "football", "music",
	"song", "food", "party", "weekend",
}

// seedTopics is the built-in curriculum. Subjects use '_' separated keys.
var seedTopics = []Topic{
	// Mathematics
	{
		Subject: "mathematics", Name: "quadratic equations",
		Keywords: []string{
			"quadratic", "quadratic formula", "equation", "squared", "x squared",
			"ax squared", "bx", "polynomial", "degree 2", "factorization", "factoring",
			"factor", "roots", "roots of", "sum of roots", "product of roots",
			"nature of roots", "real roots", "imaginary roots", "discriminant",
			"formula", "parabola", "vertex", "axis of symmetry", "coefficient",
			"b squared", "four ac", "4ac", "minus b", "plus or minus", "two solutions",
			"completing the square", "standard form", "zero product", "equal to zero",
			"solve for x", "value of x",
		},
	},
	{
		Subject: "mathematics", Name: "linear equations",
		Keywords: []string{
			"linear", "straight line", "slope", "intercept", "x intercept",
			"y intercept", "slope intercept", "point slope", "y equals mx plus b",
			"gradient", "coordinate", "axis", "graph", "variable", "constant",
			"parallel", "perpendicular", "standard form",
		},
	},
	{
		Subject: "mathematics", Name: "trigonometry",
		Keywords: []string{
			"sine", "cosine", "tangent", "sin", "cos", "tan", "theta", "angle",
			"triangle", "hypotenuse", "opposite", "adjacent", "degree", "radian",
			"pythagoras", "pythagorean", "ratio", "secant", "cosecant", "cotangent",
			"identity", "trigonometric", "unit circle",
		},
	},
	{
		Subject: "mathematics", Name: "algebra",
		Keywords: []string{
			"variable", "expression", "equation", "polynomial", "factor", "simplify",
			"solve", "substitute", "coefficient", "term", "exponent", "radical",
			"inequality", "function", "domain", "range",
		},
	},
	{
		Subject: "mathematics", Name: "geometry",
		Keywords: []string{
			"angle", "triangle", "circle", "square", "rectangle", "polygon", "area",
			"perimeter", "volume", "congruent", "similar", "parallel", "perpendicular",
			"radius", "diameter", "circumference", "theorem",
		},
	},
	{
		Subject: "mathematics", Name: "calculus",
		Keywords: []string{
			"derivative", "integral", "limit", "function", "slope", "rate",
			"differentiation", "integration", "continuous", "tangent", "curve",
			"maximum", "minimum", "optimization", "chain rule", "product rule",
		},
	},
	{
		Subject: "mathematics", Name: "statistics",
		Keywords: []string{
			"mean", "median", "mode", "average", "standard deviation", "variance",
			"probability", "distribution", "sample", "population", "hypothesis",
			"correlation", "regression", "data", "frequency", "histogram",
		},
	},
	{
		Subject: "mathematics", Name: "matrices",
		Keywords: []string{
			"matrix", "determinant", "inverse", "multiplication", "addition",
			"transpose", "row", "column", "identity", "vector", "eigenvalue",
		},
	},

	// Science
	{
		Subject: "science", Name: "photosynthesis",
		Keywords: []string{
			"photosynthesis", "chlorophyll", "sunlight", "carbon dioxide", "oxygen",
			"glucose", "plant", "leaf", "leaves", "green", "chloroplast", "energy",
			"water", "stoma", "stomata", "light reaction", "dark reaction",
			"calvin cycle", "atp", "nadph",
		},
	},
	{
		Subject: "science", Name: "newton laws",
		Keywords: []string{
			"force", "mass", "acceleration", "f equals ma", "inertia", "motion",
			"action", "reaction", "velocity", "momentum", "friction", "newton",
			"gravity", "equilibrium", "net force", "kinematics", "dynamics",
			"first law", "second law", "third law",
		},
	},
	{
		Subject: "science", Name: "atoms",
		Keywords: []string{
			"electron", "proton", "neutron", "nucleus", "orbit", "element",
			"atomic number", "mass number", "isotope", "ion", "charge", "shell",
			"valence", "bond", "molecule", "compound",
		},
	},
	{
		Subject: "science", Name: "chemical reactions",
		Keywords: []string{
			"reactant", "product", "catalyst", "equation", "balance", "acid", "base",
			"salt", "oxidation", "reduction", "exothermic", "endothermic",
			"combustion", "synthesis", "decomposition", "displacement",
		},
	},
	{
		Subject: "science", Name: "electricity",
		Keywords: []string{
			"current", "voltage", "resistance", "ohm", "circuit", "conductor",
			"insulator", "ampere", "watt", "electron flow", "battery", "switch",
			"series", "parallel", "capacitor", "electromagnetic",
		},
	},
	{
		Subject: "science", Name: "magnetism",
		Keywords: []string{
			"magnet", "pole", "field", "attract", "repel", "compass", "iron",
			"electromagnetic", "induction", "flux", "coil", "motor", "generator",
		},
	},
	{
		Subject: "science", Name: "biology",
		Keywords: []string{
			"cell", "organism", "tissue", "organ", "system", "dna", "gene",
			"chromosome", "protein", "mitosis", "meiosis", "evolution", "ecology",
		},
	},
	{
		Subject: "science", Name: "human body",
		Keywords: []string{
			"heart", "brain", "lung", "liver", "kidney", "blood", "bone", "muscle",
			"nerve", "digestion", "respiration", "circulation", "immune",
		},
	},

	// English
	{
		Subject: "english", Name: "grammar",
		Keywords: []string{
			"noun", "verb", "adjective", "adverb", "pronoun", "preposition",
			"conjunction", "sentence", "clause", "phrase", "tense", "subject",
			"object", "predicate", "modifier", "article", "voice", "mood",
		},
	},
	{
		Subject: "english", Name: "literature",
		Keywords: []string{
			"poem", "story", "character", "plot", "theme", "metaphor", "simile",
			"imagery", "author", "narrative", "setting", "conflict", "resolution",
			"symbolism", "irony", "foreshadowing", "protagonist",
		},
	},
	{
		Subject: "english", Name: "writing skills",
		Keywords: []string{
			"essay", "paragraph", "introduction", "conclusion", "thesis", "argument",
			"evidence", "citation", "draft", "revision", "edit", "coherence",
			"clarity", "tone", "style", "audience",
		},
	},
	{
		Subject: "english", Name: "comprehension",
		Keywords: []string{
			"reading", "understanding", "inference", "summary", "main idea",
			"detail", "context", "vocabulary", "interpretation", "analysis",
		},
	},
	{
		Subject: "english", Name: "poetry",
		Keywords: []string{
			"rhyme", "meter", "stanza", "verse", "rhythm", "alliteration",
			"assonance", "sonnet", "haiku", "free verse", "imagery", "tone",
		},
	},

	// History
	{
		Subject: "history", Name: "independence",
		Keywords: []string{
			"freedom", "british", "gandhi", "nehru", "partition", "struggle",
			"movement", "salt march", "quit india", "independence", "colony",
			"revolution", "nationalism", "swadeshi", "civil disobedience",
		},
	},
	{
		Subject: "history", Name: "ancient india",
		Keywords: []string{
			"indus valley", "harappa", "mohenjo daro", "vedic", "maurya", "gupta",
			"ashoka", "civilization", "empire", "dynasty", "sanskrit", "buddha",
			"jainism", "hinduism", "trade route",
		},
	},
	{
		Subject: "history", Name: "world wars",
		Keywords: []string{
			"war", "battle", "army", "navy", "alliance", "treaty", "weapon",
			"soldier", "victory", "defeat", "occupation", "liberation", "peace",
		},
	},
	{
		Subject: "history", Name: "medieval india",
		Keywords: []string{
			"mughal", "sultan", "kingdom", "empire", "invasion", "akbar",
			"architecture", "trade", "culture", "religion", "conquest",
		},
	},

	// Geography
	{
		Subject: "geography", Name: "climate",
		Keywords: []string{
			"weather", "temperature", "rainfall", "humidity", "season", "monsoon",
			"tropical", "temperate", "polar", "atmosphere", "precipitation",
		},
	},
	{
		Subject: "geography", Name: "landforms",
		Keywords: []string{
			"mountain", "plateau", "plain", "valley", "river", "ocean", "lake",
			"desert", "forest", "island", "peninsula", "continent",
		},
	},
	{
		Subject: "geography", Name: "maps",
		Keywords: []string{
			"scale", "direction", "symbol", "legend", "latitude", "longitude",
			"grid", "compass", "projection", "contour", "elevation",
		},
	},

	// Computer science
	{
		Subject: "computer_science", Name: "programming basics",
		Keywords: []string{
			"variable", "function", "loop", "condition", "array", "string",
			"integer", "boolean", "syntax", "algorithm", "debug", "compile",
		},
	},
	{
		Subject: "computer_science", Name: "data structures",
		Keywords: []string{
			"array", "list", "stack", "queue", "tree", "graph", "hash",
			"linked list", "sorting", "searching", "complexity", "algorithm",
		},
	},
	{
		Subject: "computer_science", Name: "web development",
		Keywords: []string{
			"html", "css", "javascript", "website", "browser", "server", "database",
			"api", "frontend", "backend", "responsive", "framework",
		},
	},
	{
		Subject: "computer_science", Name: "artificial intelligence",
		Keywords: []string{
			"machine learning", "neural network", "deep learning", "algorithm",
			"model", "training", "prediction", "classification", "regression",
		},
	},

	// Economics
	{
		Subject: "economics", Name: "microeconomics",
		Keywords: []string{
			"demand", "supply", "price", "market", "consumer", "producer",
			"equilibrium", "elasticity", "cost", "revenue", "profit", "utility",
		},
	},
	{
		Subject: "economics", Name: "macroeconomics",
		Keywords: []string{
			"gdp", "inflation", "unemployment", "fiscal", "monetary", "policy",
			"trade", "export", "import", "budget", "deficit", "growth",
		},
	},
}
