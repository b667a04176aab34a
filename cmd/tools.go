package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Vovarama1992/healthscribe/internal/models"
	"github.com/spf13/cobra"
)

var refineCmd = &cobra.Command{
	Use:   "refine [text]",
	Short: "Refine a raw transcription (reads stdin when no text is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := argsOrStdin(cmd, args)
		if err != nil {
			return err
		}
		speakers, _ := cmd.Flags().GetStringSlice("speakers")
		timestamps, _ := cmd.Flags().GetBool("timestamps")

		a, cleanup, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := a.refiner.Refine(cmd.Context(), models.RefineRequest{
			Text:       text,
			Speakers:   speakers,
			Timestamps: timestamps,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Text)
		return nil
	},
}

var translateCmd = &cobra.Command{
	Use:   "translate [text]",
	Short: "Translate text into the --to language",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := argsOrStdin(cmd, args)
		if err != nil {
			return err
		}
		to, _ := cmd.Flags().GetString("to")

		a, cleanup, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		out, err := a.translator.Translate(cmd.Context(), text, to)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var speakCmd = &cobra.Command{
	Use:   "speak [text]",
	Short: "Synthesize text to an MP3 file",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := argsOrStdin(cmd, args)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")

		a, cleanup, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		audio, err := a.speaker.Speak(cmd.Context(), text)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, audio, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(audio), out)
		return nil
	},
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file>",
	Short: "Transcribe a WEBM/Opus recording and refine the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		audio, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		a, cleanup, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		rec, err := a.transcriber.TranscribeAudio(cmd.Context(), audio)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n(confidence %.2f)\n", rec.Transcript, rec.Confidence)
		return nil
	},
}

func init() {
	refineCmd.Flags().StringSlice("speakers", nil, "speaker labels, comma separated")
	refineCmd.Flags().Bool("timestamps", false, "ask for [HH:MM:SS] timestamps")
	translateCmd.Flags().String("to", "es", "target language code")
	speakCmd.Flags().StringP("out", "o", "speech.mp3", "output file")
}

func argsOrStdin(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
