package prompts

import (
	"fmt"
	"strings"
)

// ============================================================================
// Shared Lexicons
// ============================================================================

// AbstractTerms are query terms that describe a mood or quality rather than
// something visible. They are expanded into concrete visual descriptions
// before embedding.
var AbstractTerms = []string{
	"cozy", "calm", "elegant", "luxurious", "premium", "trustworthy", "friendly",
	"bold", "edgy", "modern", "futuristic", "retro", "vintage", "nostalgic",
	"minimal", "clean", "busy", "chaotic", "organic", "natural", "techy",
	"professional", "corporate", "quirky", "whimsical", "energetic", "serene",
	"moody", "dreamy", "sophisticated", "approachable", "rebellious", "mysterious",
	"dark", "light", "airy", "heavy", "loud", "quiet", "soft", "sharp",
}

// EmotionPattern matches emotion adjectives not listed in AbstractTerms.
const EmotionPattern = `^(happy|joyful|cheerful|sad|melancholic|angry|anxious|excited|hopeful|nostalgic|romantic|lonely|playful|serious|peaceful|tense|optimistic|gloomy|uplifting|somber)(ish|ly)?$`

// TemperaturePattern matches visual temperature words.
const TemperaturePattern = `^(warm|warmer|hot|cold|cool|cooler|icy|frosty|fiery|sunny|wintry|summery|toasty)(ish)?$`

// IntimacyPattern matches words describing closeness or distance.
const IntimacyPattern = `^(intimate|personal|welcoming|inviting|homey|homely|warmhearted|distant|aloof|detached|impersonal|human|humane|caring|gentle)$`

// ============================================================================
// Curated Expansions
// ============================================================================

// ExpansionKey identifies a curated expansion list. An empty Category is the
// generic entry used when no category-specific list exists.
type ExpansionKey struct {
	Term     string
	Category string
}

// CuratedExpansions are hand-written visual descriptions for common abstract
// terms, optionally specialised by category.
var CuratedExpansions = map[ExpansionKey][]string{
	{Term: "cozy"}: {
		"warm earthy color palette with soft beige and terracotta tones",
		"rounded friendly typography with generous spacing",
		"photography of soft blankets, candles and warm interiors",
		"hand-drawn illustrations with muted warm colors",
	},
	{Term: "cozy", Category: "packaging"}: {
		"kraft paper packaging with hand-lettered labels",
		"knitted textures and warm neutral tones on product boxes",
		"product photos styled with mugs, blankets and soft light",
	},
	{Term: "dark"}: {
		"black or very dark background with light text",
		"low-key photography with deep shadows",
		"dark mode interface with neon accent colors",
	},
	{Term: "elegant"}: {
		"thin serif typography with lots of whitespace",
		"muted palette with gold or cream accents",
		"large editorial photography with refined layout",
	},
	{Term: "playful"}: {
		"bright saturated colors with bouncy rounded shapes",
		"cartoon illustrations and mascots",
		"hand-drawn doodles and stickers scattered across the page",
	},
	{Term: "minimal"}: {
		"plain white background with a single focal element",
		"simple sans-serif typography and a monochrome palette",
		"grid layout with very few elements and wide margins",
	},
	{Term: "futuristic"}: {
		"glowing neon gradients on a dark background",
		"3d rendered abstract shapes with glossy materials",
		"geometric sans-serif typography with wide letter spacing",
	},
	{Term: "retro"}: {
		"1970s color palette with orange, brown and mustard",
		"grainy textures and halftone print effects",
		"vintage display typefaces and badge-style logos",
	},
	{Term: "trustworthy"}: {
		"clean blue and white corporate layout",
		"customer testimonials with headshot photos",
		"security badges and certification logos near a call to action",
	},
}

// CuratedFor returns the curated expansions for (term, category), falling
// back to the generic entry for term when the category has none.
func CuratedFor(term, category string) []string {
	if list, ok := CuratedExpansions[ExpansionKey{Term: term, Category: category}]; ok {
		return list
	}
	if category != "" {
		return CuratedExpansions[ExpansionKey{Term: term}]
	}
	return nil
}

// HasCurated reports whether term appears in the curated table under any
// category.
func HasCurated(term string) bool {
	for key := range CuratedExpansions {
		if key.Term == term {
			return true
		}
	}
	return false
}

// ============================================================================
// Generation Prompt (LLM)
// ============================================================================

// ExpansionSystemPrompt is the system prompt for generating visual expansions
// of an abstract design term.
const ExpansionSystemPrompt = `You help a visual search engine for website screenshots understand abstract style words.
Given a term such as "cozy" or "bold", describe how that quality typically shows up visually on a website.

Rules:
- Return between 4 and 6 phrases.
- Each phrase is short (4 to 12 words) and describes something visible: colors, typography, layout, imagery, texture.
- Phrases must be concrete enough to embed, but general enough to apply to many sites. Do not describe one specific scenario.
- Do not repeat the term itself on its own.
- Output only a JSON array of strings, no markdown and no explanation.

Example
Term: calm
["soft pastel color palette with low contrast","lots of whitespace and a slow, sparse layout","nature photography with water or sky","light thin sans-serif typography"]`

// ExpansionUserPrompt renders the user message for one term.
func ExpansionUserPrompt(term, category string) string {
	if strings.TrimSpace(category) == "" {
		return fmt.Sprintf("Term: %s", term)
	}
	return fmt.Sprintf("Term: %s\nContext: %s websites", term, category)
}

// ============================================================================
// Hub Probes
// ============================================================================

// ProbeStylePhrases are generic style queries appended to the concept labels
// when probing the corpus for hub images.
var ProbeStylePhrases = []string{
	"a website landing page",
	"a clean modern website",
	"a colorful website with illustrations",
	"a dark website with bright accents",
	"an e-commerce product page",
	"a portfolio website with large images",
	"a blog with long text content",
	"a website with a hero video",
	"a pricing page with three columns",
	"a website with a big bold headline",
	"a corporate website with stock photos",
	"a website with hand-drawn graphics",
	"a website with a photo grid",
	"a website with a gradient background",
	"a minimal black and white website",
	"a playful website for kids",
	"a restaurant website with food photos",
	"a software product website with screenshots",
	"a website with 3d graphics",
	"a retro styled website",
}
