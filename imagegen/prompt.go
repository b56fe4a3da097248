package imagegen

import (
	"fmt"
	"strings"
)

// GenericDescription replaces a physical description the vision model
// refused to produce.
const GenericDescription = "A happy young adult graduate with a friendly smile"

// FallbackSubjectSuffix is appended to prompts sent to the text-only
// fallback model, which never sees the source photo.
const FallbackSubjectSuffix = " The character is a generic happy graduate student."

// RefinementMarker introduces the refinement clause. It always closes the
// prompt so the instruction wins over any earlier wording.
const RefinementMarker = "HIGHEST PRIORITY ADJUSTMENT"

var styleBlocks = map[Style]string{
	StyleThreeD: "Style: 3D animation render in a Pixar-like look. Cute proportions, big expressive eyes, " +
		"smooth skin with subsurface scattering, volumetric cinematic lighting, recognizable features.",
	StyleTwoD: "Style: professional digital caricature painting. Semi-realistic, smooth brushwork, " +
		"clean lines, vibrant colors, high detail.",
}

var framingBlocks = map[Framing]string{
	FramingPortrait: "Framing: portrait shot, focused on head and shoulders.",
	FramingFullBody: "Framing: full body shot, showing the entire gown and the shoes.",
}

var backgroundBlocks = map[Background]string{
	BackgroundStudio:  "Background: elegant photo studio, soft key light, neutral backdrop.",
	BackgroundCampus:  "Background: university campus on a sunny day, classic buildings and green lawn, softly blurred.",
	BackgroundFestive: "Background: festive celebration with golden bokeh lights and confetti.",
}

// outfitClause is mandatory in every prompt.
func outfitClause(courseName string) string {
	return fmt.Sprintf("Outfit (mandatory): a black academic graduation gown, a mortarboard cap with tassel, "+
		"a sash in colors representing the course %s, and a rolled diploma held in one hand.",
		strings.TrimSpace(courseName))
}

func refinementClause(refinement string) string {
	return fmt.Sprintf("%s: %s", RefinementMarker, strings.TrimSpace(refinement))
}

// BuildPrompt renders the instruction for the direct-edit path, where the
// model receives the source photo next to the text.
//
// The output is deterministic for a given config. When cfg.Refinement is set
// it is the last line of the prompt.
func BuildPrompt(cfg GenerationConfig) string {
	lines := []string{
		"You are a professional caricature artist.",
		"Task: create a graduation caricature of the person in the attached photo.",
		"Preserve identity: same face shape, hair, skin tone, glasses and facial hair as the photo.",
		outfitClause(cfg.CourseName),
		styleBlocks[cfg.Style],
		framingBlocks[cfg.Framing],
		backgroundBlocks[cfg.Background],
		"Expression: proud, smiling, triumphant.",
		"Quality: highly detailed, sharp focus on the face.",
	}
	return joinPrompt(lines, cfg.Refinement)
}

// BuildDescriptionPrompt renders the instruction for the text-to-image path.
// The physical description stands in for the photo the model cannot see.
func BuildDescriptionPrompt(cfg GenerationConfig, description string) string {
	lines := []string{
		"Create a professional graduation caricature.",
		"Character visuals (follow strictly): " + strings.TrimSpace(description),
		outfitClause(cfg.CourseName),
		styleBlocks[cfg.Style],
		framingBlocks[cfg.Framing],
		backgroundBlocks[cfg.Background],
		"Expression: very happy, proud, big smile.",
		"Quality: high resolution, sharp focus on the face.",
	}
	return joinPrompt(lines, cfg.Refinement)
}

func joinPrompt(lines []string, refinement string) string {
	if strings.TrimSpace(refinement) != "" {
		lines = append(lines, refinementClause(refinement))
	}
	return strings.Join(lines, "\n")
}
