package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/apresai/paperpod/internal/tts"
)

var listVoicesCmd = &cobra.Command{
	Use:   "list-voices",
	Short: "List available voices for the speech providers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		providers := tts.ProviderNames()
		if flagTTS != "" {
			providers = []string{flagTTS}
		}
		return listVoices(cmd.OutOrStdout(), providers)
	},
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	defaultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
)

func listVoices(w io.Writer, providers []string) error {
	fmt.Fprintln(w, "\nAvailable voices:")

	for _, name := range providers {
		voices, err := tts.AvailableVoices(name)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "\n  %s\n", headingStyle.Render(voiceLabel(name)))
		fmt.Fprintf(w, "  %s\n", strings.Repeat("─", 50))
		fmt.Fprintf(w, "  %-28s %-12s %-8s %s\n", "ID", "NAME", "GENDER", "DESCRIPTION")
		for _, v := range voices {
			def := ""
			if v.DefaultFor != "" {
				def = " " + defaultStyle.Render(fmt.Sprintf("(default %s)", v.DefaultFor))
			}
			fmt.Fprintf(w, "  %-28s %-12s %-8s %s%s\n", v.ID, v.Name, v.Gender, v.Description, def)
		}
	}
	fmt.Fprintln(w)
	return nil
}

func voiceLabel(provider string) string {
	switch provider {
	case "elevenlabs":
		return "ELEVENLABS"
	case "google":
		return "GOOGLE CLOUD TTS"
	case "polly":
		return "AMAZON POLLY"
	case "gemini":
		return "GEMINI"
	}
	return strings.ToUpper(provider)
}
