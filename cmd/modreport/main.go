package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/pvanhorn/chatgate/internal/analytics"
)

func main() {
	logPath := flag.String("log", "logs/moderation.log", "path to the moderation log file")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	flag.Parse()

	report, err := analytics.ParseFile(*logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "modreport: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "modreport: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printReport(report)
}

func printReport(r *analytics.Report) {
	fmt.Println("Moderation Report")
	fmt.Println("=================")
	fmt.Printf("Total user inputs:    %d\n", r.TotalUserInputs)
	fmt.Printf("  accepted:           %d\n", r.InputsAccepted)
	fmt.Printf("  blocked:            %d\n", r.InputsBlocked)
	fmt.Printf("    hate speech:      %d\n", r.InputBlockedHateSpeech)
	fmt.Printf("    PII:              %d\n", r.InputBlockedPII)
	fmt.Printf("    jailbreak:        %d\n", r.InputBlockedJailbreak)
	fmt.Printf("    classifier:       %d\n", r.InputBlockedClassifier)
	fmt.Println()
	fmt.Printf("Total generations:    %d\n", r.TotalGenerations)
	fmt.Printf("  failed:             %d\n", r.GenerationsFailed)
	fmt.Printf("  outputs accepted:   %d\n", r.OutputsAccepted)
	fmt.Printf("  outputs blocked:    %d\n", r.OutputsBlocked)
}
