// Package storyboard turns the user's ordered image selection into the shot
// list submitted to the video model. A text model writes one description per
// image; the selected style's prompt fragments are appended to every shot.
package storyboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reelgen/internal/providers/bedrock"
	"reelgen/internal/styles"
)

// Planner produces free-form text from an instruction plus source images.
// *bedrock.Client satisfies it.
type Planner interface {
	GenerateShotPlan(ctx context.Context, instruction string, images [][]byte) (string, error)
}

// SourceImage is one selected preset image, in selection order.
type SourceImage struct {
	Ref  string
	Data []byte
}

// Builder assembles multi-shot requests.
type Builder struct {
	planner Planner
	caser   cases.Caser
}

// NewBuilder returns a Builder backed by the given planner.
func NewBuilder(planner Planner) *Builder {
	return &Builder{
		planner: planner,
		caser:   cases.Title(language.English),
	}
}

type shotDescription struct {
	Text       string `json:"text"`
	ImageIndex int    `json:"image_index"`
}

// Build asks the planner for one description per image and pairs each with
// its source frame. When the planner's answer cannot be parsed the whole
// selection collapses to a single styled shot, so a submission never fails on
// a malformed plan alone.
func (b *Builder) Build(ctx context.Context, images []SourceImage, tmpl styles.Template) ([]bedrock.Shot, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("storyboard: no source images")
	}

	raw := make([][]byte, len(images))
	for i, img := range images {
		raw[i] = img.Data
	}

	plan, err := b.planner.GenerateShotPlan(ctx, b.instruction(len(images), tmpl), raw)
	if err != nil {
		return nil, fmt.Errorf("storyboard: shot plan: %w", err)
	}

	clause := styleClause(tmpl)
	descriptions, err := parseShotPlan(plan)
	if err != nil {
		// Same fallback as a plan the model refused to format: one shot
		// carrying the first image and a generic styled description.
		return []bedrock.Shot{bedrock.NewShot(fallbackText(tmpl), images[0].Data)}, nil
	}

	var shots []bedrock.Shot
	for i, desc := range descriptions {
		if i >= len(images) {
			break
		}
		idx := desc.ImageIndex
		if idx < 0 || idx >= len(images) {
			idx = i
		}
		text := strings.TrimSpace(desc.Text)
		if text == "" {
			text = fallbackText(tmpl)
		} else {
			text = text + ", " + clause
		}
		shots = append(shots, bedrock.NewShot(text, images[idx].Data))
	}
	if len(shots) == 0 {
		shots = []bedrock.Shot{bedrock.NewShot(fallbackText(tmpl), images[0].Data)}
	}
	return shots, nil
}

func (b *Builder) instruction(count int, tmpl styles.Template) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an expert prompt writer for multi-shot video generation.\n\n")
	fmt.Fprintf(&sb, "Analyze the %d provided images and write one shot description per image in the %s style (%s).\n\n",
		count, b.caser.String(tmpl.Name), styleClause(tmpl))
	sb.WriteString("Each description should cover the visual elements of its image, a camera movement, and the atmosphere, in 50-80 words, flowing naturally from shot to shot.\n\n")
	fmt.Fprintf(&sb, "Respond with a JSON array of %d objects, each with \"text\" and \"image_index\" (0-based) fields, and nothing else.", count)
	return sb.String()
}

// parseShotPlan extracts the JSON array from the model output, tolerating
// prose around it.
func parseShotPlan(plan string) ([]shotDescription, error) {
	start := strings.Index(plan, "[")
	end := strings.LastIndex(plan, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("storyboard: no JSON array in plan")
	}
	var descriptions []shotDescription
	if err := json.Unmarshal([]byte(plan[start:end+1]), &descriptions); err != nil {
		return nil, fmt.Errorf("storyboard: decode plan: %w", err)
	}
	if len(descriptions) == 0 {
		return nil, fmt.Errorf("storyboard: empty plan")
	}
	return descriptions, nil
}

func styleClause(tmpl styles.Template) string {
	return strings.Join(tmpl.Fragments, ", ")
}

func fallbackText(tmpl styles.Template) string {
	return fmt.Sprintf("A %s style video with smooth transitions, %s", tmpl.Name, styleClause(tmpl))
}
