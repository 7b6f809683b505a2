package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/ericfisherdev/prready/internal/domain/model"
)

var (
	green  = color.New(color.FgHiGreen).SprintFunc()
	yellow = color.New(color.FgHiYellow).SprintFunc()
	red    = color.New(color.FgHiRed).SprintFunc()
	cyan   = color.New(color.FgHiCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// scoreColor colors a 0-100 score by band.
func scoreColor(score int) string {
	s := fmt.Sprintf("%d", score)
	switch {
	case score >= 80:
		return green(s)
	case score >= 50:
		return yellow(s)
	default:
		return red(s)
	}
}

func classificationColor(c model.ReadinessClass) string {
	switch c {
	case model.ReadinessReadyToMerge:
		return green(string(c))
	case model.ReadinessNearlyReady:
		return cyan(string(c))
	case model.ReadinessNeedsWork:
		return yellow(string(c))
	default:
		return red(string(c))
	}
}

// printAssessment writes a human-readable readiness report.
func printAssessment(w io.Writer, pr model.PullRequest, a model.Assessment) {
	res := a.Result

	fmt.Fprintf(w, "%s %s#%d  %s\n", bold("PR"), pr.RepoFullName, pr.Number, pr.Title)
	fmt.Fprintf(w, "   author %s, review %s, %d/%d checks passed\n",
		pr.Author, pr.ReviewStatus, pr.ChecksPassed, pr.TotalChecks())
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s  (overall %s, ci %s, review %s)\n",
		bold("Readiness"), classificationColor(res.Classification),
		scoreColor(res.OverallScore), scoreColor(res.CIScore), scoreColor(res.ReviewScore))
	fmt.Fprintf(w, "%s %s, %d/%d feedback answered\n",
		bold("Review health"), res.ReviewHealth, res.Review.RespondedFeedback, res.Review.TotalFeedback)
	if a.DroppedEvents > 0 {
		fmt.Fprintf(w, "%s %d events without a usable timestamp were ignored\n", yellow("!"), a.DroppedEvents)
	}

	if len(res.Blockers)+len(res.Warnings)+len(res.Recommendations) == 0 {
		return
	}

	fmt.Fprintln(w)
	table := tablewriter.NewTable(w,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header([]string{"Kind", "Message"})
	for _, b := range res.Blockers {
		_ = table.Append([]string{red("blocker"), b})
	}
	for _, m := range res.Warnings {
		_ = table.Append([]string{yellow("warning"), m})
	}
	for _, m := range res.Recommendations {
		_ = table.Append([]string{cyan("tip"), m})
	}
	_ = table.Render()
}
