package vision

import (
	"fmt"
	"strings"
)

// PromptInput carries everything interpolated into a caption prompt.
type PromptInput struct {
	ImageURL    string
	Filename    string
	OriginalAlt string
	HTMLContext string
}

// BuildPrompt selects the fixed template for the language code and fills
// it in. Unknown languages fall back to English. Adding a language means
// adding a template here; there is no generalized localization layer.
func BuildPrompt(language string, in PromptInput) string {
	switch language {
	case "cs":
		return buildCzechPrompt(in)
	default:
		return buildEnglishPrompt(in)
	}
}

func buildEnglishPrompt(in PromptInput) string {
	var sb strings.Builder

	sb.WriteString("Generate a concise, descriptive alt text for this image. ")
	sb.WriteString("The alt text should be accurate, informative, and help users with visual impairments understand the image's purpose.\n\n")
	sb.WriteString("Requirements:\n")
	sb.WriteString("- Do NOT start with 'image of', 'picture of', 'photo of', or similar phrases\n")
	sb.WriteString("- Focus on the purpose and meaning of the image, not just its appearance\n")
	sb.WriteString("- Write in present tense\n")
	sb.WriteString("- Respond with ONLY the alt text, no quotes, no explanations\n\n")

	sb.WriteString(fmt.Sprintf("Image URL: %s\n", in.ImageURL))
	sb.WriteString(fmt.Sprintf("Image filename: %s\n", in.Filename))
	if in.OriginalAlt != "" {
		sb.WriteString(fmt.Sprintf("Current alt text: %s\n", in.OriginalAlt))
	}
	if in.HTMLContext != "" {
		sb.WriteString(fmt.Sprintf("\nSurrounding HTML context:\n%s\n", in.HTMLContext))
	}

	sb.WriteString("\nWeigh the image itself, its URL/filename and any current alt text more heavily than the HTML context; ")
	sb.WriteString("the surrounding text may be unrelated to this particular image.")

	return sb.String()
}

func buildCzechPrompt(in PromptInput) string {
	var sb strings.Builder

	sb.WriteString("Vytvoř stručný a výstižný alternativní text (alt text) pro tento obrázek v češtině. ")
	sb.WriteString("Alt text má pomoci uživatelům se zrakovým postižením pochopit účel obrázku.\n\n")
	sb.WriteString("Požadavky:\n")
	sb.WriteString("- Nezačínej frázemi jako 'obrázek', 'fotografie' nebo 'snímek'\n")
	sb.WriteString("- Nepoužívej vyhýbavé formulace typu 'pravděpodobně', 'zřejmě' nebo 'možná'\n")
	sb.WriteString("- Piš v přítomném čase\n")
	sb.WriteString("- Odpověz POUZE samotným alt textem, bez uvozovek a vysvětlení\n\n")

	sb.WriteString(fmt.Sprintf("URL obrázku: %s\n", in.ImageURL))
	sb.WriteString(fmt.Sprintf("Název souboru: %s\n", in.Filename))
	if in.OriginalAlt != "" {
		sb.WriteString(fmt.Sprintf("Současný alt text: %s\n", in.OriginalAlt))
	}
	if in.HTMLContext != "" {
		sb.WriteString(fmt.Sprintf("\nOkolní HTML kontext:\n%s\n", in.HTMLContext))
	}

	sb.WriteString("\nNázev souboru a URL ber jako silný signál: generický název (např. 'IMG_1234', 'foto-01') ")
	sb.WriteString("napovídá obecný snímek, popisný název napovídá konkrétní obsah. ")
	sb.WriteString("Obrázek samotný, jeho URL/název souboru a současný alt text váží víc než okolní HTML kontext, ")
	sb.WriteString("který s obrázkem nemusí souviset.")

	return sb.String()
}
