package caption

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultBasePrompt = `Generate SEO friendly title, description, and keywords(single word) as a JSON object for the following image. Only return the JSON. Do not include any other text.
{
    "title": "generated title",
    "description": "generated description",
    "keywords": ["keyword1", "keyword2", ...]
}`

var defaultForbidden = []string{
	"thanksgiving", "valentine", "vintage", "heaven", "heavenly", "retro", "god", "love",
	"valentines", "paradise", "majestic", "magic", "rejuvenating", "habitat", "pristine",
	"revival", "residence", "primitive", "zen", "graceful", "fashion", "cinema", "movie",
	"club", "bar", "matrix", "nightlife", "fantasy", "sci-fi", "romantic", "wedding", "party",
	"Christmas", "celebration", "easter", "winery", "wine", "spooky", "pork", "kaleidoscopic",
	"mandala", "bohemian", "ethnic", "folk", "fairy tale", "story", "celestial", "minimalistic",
}

// Prompt is the text sent alongside each image. It can be loaded from YAML.
type Prompt struct {
	Base              string   `yaml:"base"`
	TitleLength       int      `yaml:"title_length"`
	DescriptionLength int      `yaml:"description_length"`
	KeywordCount      int      `yaml:"keyword_count"`
	Forbidden         []string `yaml:"forbidden"`
}

func DefaultPrompt(titleLength, descriptionLength, keywordCount int) Prompt {
	return Prompt{
		Base:              defaultBasePrompt,
		TitleLength:       titleLength,
		DescriptionLength: descriptionLength,
		KeywordCount:      keywordCount,
		Forbidden:         append([]string(nil), defaultForbidden...),
	}
}

// LoadPrompt overlays the YAML file at path onto base. Fields absent from the
// file keep their base values.
func LoadPrompt(path string, base Prompt) (Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read prompt file: %w", err)
	}

	p := base
	if err := yaml.Unmarshal(data, &p); err != nil {
		return base, fmt.Errorf("failed to parse prompt file: %w", err)
	}
	return p, nil
}

// Instruction is the request carrying the length targets and forbidden words.
func (p Prompt) Instruction() string {
	var b strings.Builder
	fmt.Fprintf(&b,
		"Please give me a long perfect title of about %d characters, description of about %d characters and %d related single-word SEO keywords based on the Microstock site and follow (Anatomy of Titles: Style, Subject, Location or background) about this image, don't use (:,&, |) symbols in title and description;",
		p.TitleLength, p.DescriptionLength, p.KeywordCount)
	if len(p.Forbidden) > 0 {
		b.WriteString("\n\nDo not use these keywords in any titles, descriptions, and keywords: ")
		b.WriteString(strings.Join(p.Forbidden, ", "))
	}
	return b.String()
}
