package fallback

import "github.com/TobiSchelling/storyatlas/internal/model"

var defaultStories = []model.RankedStory{
	{
		ID:             "fallback1",
		Title:          "The Forgotten Case of the Boston Strangler",
		Publication:    "Boston Globe",
		Date:           "1964-01-15",
		Snippet:        "An in-depth analysis of one of America's most notorious serial killers and the investigation that captivated the nation. New evidence suggests accomplices may have been involved.",
		RelevanceScore: 0.95,
		StoryType:      "True Crime",
	},
	{
		ID:             "fallback2",
		Title:          "Zodiac: The Cipher That Remains Unsolved",
		Publication:    "San Francisco Chronicle",
		Date:           "1969-08-02",
		Snippet:        "The Zodiac Killer's ciphers have puzzled cryptographers for decades. A team of amateur code-breakers believes they may have found a new approach to crack the infamous 340 cipher.",
		RelevanceScore: 0.92,
		StoryType:      "Criminal Investigation",
	},
	{
		ID:             "fallback3",
		Title:          "Ted Bundy: The Psychology Behind the Mask",
		Publication:    "Psychology Today",
		Date:           "1980-03-12",
		Snippet:        "Examining the psychological profile of Ted Bundy and how he managed to maintain a charismatic facade while committing heinous crimes. Interviews with former friends reveal warning signs that went unnoticed.",
		RelevanceScore: 0.89,
		StoryType:      "Psychological Profile",
	},
	{
		ID:             "fallback4",
		Title:          "Green River Killer: The Investigation That Changed Forensics",
		Publication:    "Seattle Times",
		Date:           "2001-11-30",
		Snippet:        "How the two-decade hunt for the Green River Killer revolutionized forensic science and DNA technology. The case pioneered techniques now standard in criminal investigations.",
		RelevanceScore: 0.87,
		StoryType:      "Forensic Science",
	},
	{
		ID:             "fallback5",
		Title:          "BTK Killer's Letters: Communication as Control",
		Publication:    "Wichita Eagle",
		Date:           "2005-02-25",
		Snippet:        "Analysis of the correspondence between the BTK Killer and media outlets reveals patterns of control and manipulation. The psychological need for recognition ultimately led to his capture.",
		RelevanceScore: 0.85,
		StoryType:      "Criminal Psychology",
	},
}

var defaultArcs = []model.Arc{
	{
		ID:         "fallbackArc1",
		Title:      "The Serial Killer Next Door: America's Hidden Predators",
		StoryCount: 8,
		Timespan:   "1960-2005",
		Summary:    "A chilling narrative thread connecting seemingly ordinary people who led double lives as notorious killers. This arc explores how these individuals evaded detection, often hiding in plain sight within their communities.",
		Themes:     []string{"Criminal Psychology", "Social Camouflage", "Investigation Failures", "Community Blindness"},
		StoryType:  "True Crime with Sociological Elements",
	},
	{
		ID:         "fallbackArc2",
		Title:      "Patterns of Predation: The Evolution of Serial Killer Investigations",
		StoryCount: 6,
		Timespan:   "1950-2010",
		Summary:    "From primitive forensics to DNA databases and geographical profiling, this narrative arc traces how law enforcement adapted to catch increasingly sophisticated killers. Each case contributed techniques that became essential to modern criminal investigation.",
		Themes:     []string{"Forensic Evolution", "Investigative Breakthroughs", "Technological Advancement", "Procedural Innovation"},
		StoryType:  "Procedural with Historical Context",
	},
}

var defaultContexts = map[string]model.DatasetContext{
	"San Antonio Express-News": {
		Count:     218,
		DateRange: "August 1, 1977 to August 14, 1977 [MOCK DATA]",
		TopPeople: []string{"[MOCK] Maria Gonzalez", "[MOCK] Joe Luna", "[MOCK] Mayor McAllister"},
		Themes:    []string{"[MOCK] labor strikes", "[MOCK] police investigations", "[MOCK] education reform", "[MOCK] housing policy"},
	},
	"Boston Globe": {
		Count:     175,
		DateRange: "January 10, 1974 to January 25, 1974 [MOCK DATA]",
		TopPeople: []string{"[MOCK] Senator Kennedy", "[MOCK] Mayor White", "[MOCK] Governor Sargent"},
		Themes:    []string{"[MOCK] energy crisis", "[MOCK] political scandal", "[MOCK] economic recession", "[MOCK] crime wave"},
	},
}
