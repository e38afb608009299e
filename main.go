package main

import (
	"os"

	"github.com/MrMcEpic/whisper-transcription/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
