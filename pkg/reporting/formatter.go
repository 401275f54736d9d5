package reporting

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jihwankim/wireless-emulator/pkg/controller"
)

// ReportFormat represents the report output format.
type ReportFormat string

const (
	ReportFormatHTML ReportFormat = "html"
	ReportFormatText ReportFormat = "text"
	ReportFormatJSON ReportFormat = "json"
)

// Formatter generates formatted reports from deployment data.
type Formatter struct {
	logger *Logger
}

// NewFormatter creates a new report formatter.
func NewFormatter(logger *Logger) *Formatter {
	return &Formatter{logger: logger}
}

// GenerateReport generates a report in the specified format.
func (f *Formatter) GenerateReport(report *DeploymentReport, format ReportFormat, outputPath string) error {
	switch format {
	case ReportFormatHTML:
		return f.generateHTMLReport(report, outputPath)
	case ReportFormatText:
		return f.generateTextReport(report, outputPath)
	case ReportFormatJSON:
		return fmt.Errorf("JSON format is automatically saved by storage")
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

func (f *Formatter) generateHTMLReport(report *DeploymentReport, outputPath string) error {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05")
		},
		"statusClass": func(viable bool) string {
			if viable {
				return "pass"
			}
			return "fail"
		},
		"statusIcon": func(viable bool) string {
			if viable {
				return "✅"
			}
			return "❌"
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse HTML template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, report); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	if err := os.WriteFile(outputPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write HTML report: %w", err)
	}

	f.logger.Info("HTML report generated", "path", outputPath)
	return nil
}

func (f *Formatter) generateTextReport(report *DeploymentReport, outputPath string) error {
	var buf bytes.Buffer

	buf.WriteString(strings.Repeat("=", 80) + "\n")
	buf.WriteString("   WIRELESS EMULATOR DEPLOYMENT REPORT\n")
	buf.WriteString(strings.Repeat("=", 80) + "\n\n")

	status := "SUCCEEDED"
	if !report.Success {
		status = "FAILED"
	}

	buf.WriteString("DEPLOYMENT SUMMARY\n")
	buf.WriteString(strings.Repeat("-", 80) + "\n")
	buf.WriteString(fmt.Sprintf("Status:       %s\n", status))
	buf.WriteString(fmt.Sprintf("Topology:     %s\n", report.TopologyName))
	buf.WriteString(fmt.Sprintf("State:        %s\n", report.FinalState))
	buf.WriteString(fmt.Sprintf("Start Time:   %s\n", report.StartTime.Format("2006-01-02 15:04:05")))
	buf.WriteString(fmt.Sprintf("End Time:     %s\n", report.EndTime.Format("2006-01-02 15:04:05")))
	buf.WriteString(fmt.Sprintf("Duration:     %s\n", report.Duration))
	if report.Message != "" {
		buf.WriteString(fmt.Sprintf("Message:      %s\n", report.Message))
	}
	buf.WriteString("\n")

	if len(report.Links) > 0 {
		buf.WriteString("LINKS\n")
		buf.WriteString(strings.Repeat("-", 80) + "\n")
		for i, link := range report.Links {
			viability := "viable"
			if !link.Viable {
				viability = "not viable"
			}
			buf.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, link.LinkID, viability))
			buf.WriteString(fmt.Sprintf("   Interface:   %s.%s\n", link.TxNode, link.TxInterface))
			buf.WriteString(fmt.Sprintf("   Delay:       %.2f ms (jitter %.2f ms)\n", link.DelayMs, link.JitterMs))
			buf.WriteString(fmt.Sprintf("   Loss:        %.2f%%\n", link.LossPercent))
			buf.WriteString(fmt.Sprintf("   Rate:        %.2f Mbps\n", link.RateMbps))
			buf.WriteString("\n")
		}
	}

	buf.WriteString("CLEANUP SUMMARY\n")
	buf.WriteString(strings.Repeat("-", 80) + "\n")
	buf.WriteString(fmt.Sprintf("Total Actions: %d\n", report.CleanupSummary.TotalActions))
	buf.WriteString(fmt.Sprintf("Succeeded:     %d\n", report.CleanupSummary.Succeeded))
	buf.WriteString(fmt.Sprintf("Failed:        %d\n", report.CleanupSummary.Failed))
	buf.WriteString("\n")

	if len(report.CleanupLog) > 0 {
		buf.WriteString("CLEANUP AUDIT LOG\n")
		buf.WriteString(strings.Repeat("-", 80) + "\n")
		for i, entry := range report.CleanupLog {
			status := "✓"
			if !entry.Success {
				status = "✗"
			}
			buf.WriteString(fmt.Sprintf("%d. [%s] %s %s\n", i+1, entry.Timestamp.Format("15:04:05"), status, entry.Action))
			buf.WriteString(fmt.Sprintf("   Target:  %s\n", entry.Target))
			buf.WriteString(fmt.Sprintf("   Details: %s\n", entry.Details))
			if entry.Error != nil {
				buf.WriteString(fmt.Sprintf("   Error:   %v\n", entry.Error))
			}
			buf.WriteString("\n")
		}
	}

	if len(report.Errors) > 0 {
		buf.WriteString("ERRORS\n")
		buf.WriteString(strings.Repeat("-", 80) + "\n")
		for i, err := range report.Errors {
			buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, err))
		}
		buf.WriteString("\n")
	}

	buf.WriteString(strings.Repeat("=", 80) + "\n")
	buf.WriteString(fmt.Sprintf("Generated: %s\n", report.EndTime.Format("2006-01-02 15:04:05")))
	buf.WriteString(strings.Repeat("=", 80) + "\n")

	if err := os.WriteFile(outputPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write text report: %w", err)
	}

	f.logger.Info("Text report generated", "path", outputPath)
	return nil
}

// CompareReports generates a comparison report for multiple deploy runs.
func (f *Formatter) CompareReports(reports []*DeploymentReport, outputPath string) error {
	if len(reports) < 2 {
		return fmt.Errorf("need at least 2 reports to compare")
	}

	var buf bytes.Buffer

	buf.WriteString(strings.Repeat("=", 80) + "\n")
	buf.WriteString("   DEPLOYMENT COMPARISON\n")
	buf.WriteString(strings.Repeat("=", 80) + "\n\n")

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].StartTime.Before(reports[j].StartTime)
	})

	buf.WriteString("DEPLOYMENT SUMMARY\n")
	buf.WriteString(strings.Repeat("-", 80) + "\n")
	buf.WriteString(fmt.Sprintf("%-20s %-12s %-10s %-10s\n", "Topology", "State", "Duration", "Links"))
	buf.WriteString(strings.Repeat("-", 80) + "\n")

	for _, report := range reports {
		status := "SUCCEEDED"
		if !report.Success {
			status = "FAILED"
		}
		buf.WriteString(fmt.Sprintf("%-20s %-12s %-10s %d\n",
			truncate(report.TopologyName, 20), status, report.Duration, len(report.Links)))
	}
	buf.WriteString("\n")

	buf.WriteString("LINK VIABILITY COMPARISON\n")
	buf.WriteString(strings.Repeat("-", 80) + "\n")

	linkIDs := make(map[string]bool)
	for _, report := range reports {
		for _, link := range report.Links {
			linkIDs[link.LinkID] = true
		}
	}
	ids := make([]string, 0, len(linkIDs))
	for id := range linkIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		buf.WriteString(fmt.Sprintf("\n%s:\n", id))
		for _, report := range reports {
			var link *controller.LinkSummary
			for i := range report.Links {
				if report.Links[i].LinkID == id {
					link = &report.Links[i]
					break
				}
			}
			if link != nil {
				status := "✓"
				if !link.Viable {
					status = "✗"
				}
				buf.WriteString(fmt.Sprintf("  %s [%s] delay=%.2fms loss=%.2f%% rate=%.2fMbps (%s)\n",
					status, truncate(report.TopologyName, 12), link.DelayMs, link.LossPercent, link.RateMbps,
					report.StartTime.Format("15:04:05")))
			} else {
				buf.WriteString(fmt.Sprintf("  - [%s] Not present\n", truncate(report.TopologyName, 12)))
			}
		}
	}
	buf.WriteString("\n")

	if err := os.WriteFile(outputPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write comparison report: %w", err)
	}

	f.logger.Info("Comparison report generated", "path", outputPath)
	return nil
}

// GetReportPath generates a report file path based on a deployment report and format.
func GetReportPath(report *DeploymentReport, format ReportFormat, outputDir string) string {
	timestamp := report.StartTime.Format("20060102-150405")
	filename := fmt.Sprintf("report-%s-%s.%s", timestamp, sanitizeName(report.TopologyName), string(format))
	return filepath.Join(outputDir, filename)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// HTML template for report generation.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Deployment Report - {{.TopologyName}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 1200px;
            margin: 0 auto;
            padding: 20px;
            background-color: #f5f5f5;
        }
        .container {
            background-color: white;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
            padding: 30px;
        }
        h1, h2 {
            color: #2c3e50;
            border-bottom: 2px solid #3498db;
            padding-bottom: 10px;
        }
        .header {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 30px;
            border-radius: 8px 8px 0 0;
            margin: -30px -30px 30px -30px;
        }
        .status {
            display: inline-block;
            padding: 5px 15px;
            border-radius: 4px;
            font-weight: bold;
            margin-left: 10px;
        }
        .status.pass { background-color: #27ae60; color: white; }
        .status.fail { background-color: #e74c3c; color: white; }
        .info-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(250px, 1fr));
            gap: 20px;
            margin: 20px 0;
        }
        .info-box { background-color: #ecf0f1; padding: 15px; border-radius: 4px; }
        .info-label { font-weight: bold; color: #7f8c8d; font-size: 0.9em; margin-bottom: 5px; }
        .info-value { font-size: 1.1em; color: #2c3e50; }
        table { width: 100%; border-collapse: collapse; margin: 20px 0; }
        th, td { padding: 12px; text-align: left; border-bottom: 1px solid #ddd; }
        th { background-color: #3498db; color: white; }
        tr:hover { background-color: #f5f5f5; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Deployment Report</h1>
            <p>{{.TopologyName}}</p>
        </div>

        <h2>Summary<span class="status {{statusClass .Success}}">{{if .Success}}SUCCEEDED{{else}}FAILED{{end}}</span></h2>
        <div class="info-grid">
            <div class="info-box">
                <div class="info-label">Start Time</div>
                <div class="info-value">{{formatTime .StartTime}}</div>
            </div>
            <div class="info-box">
                <div class="info-label">End Time</div>
                <div class="info-value">{{formatTime .EndTime}}</div>
            </div>
            <div class="info-box">
                <div class="info-label">Duration</div>
                <div class="info-value">{{.Duration}}</div>
            </div>
            <div class="info-box">
                <div class="info-label">State</div>
                <div class="info-value">{{.FinalState}}</div>
            </div>
        </div>

        {{if .Links}}
        <h2>Links</h2>
        <table>
            <thead>
                <tr>
                    <th>Link</th>
                    <th>Interface</th>
                    <th>Delay (ms)</th>
                    <th>Loss (%)</th>
                    <th>Rate (Mbps)</th>
                    <th>Viable</th>
                </tr>
            </thead>
            <tbody>
                {{range .Links}}
                <tr>
                    <td>{{.LinkID}}</td>
                    <td>{{.TxNode}}.{{.TxInterface}}</td>
                    <td>{{.DelayMs}}</td>
                    <td>{{.LossPercent}}</td>
                    <td>{{.RateMbps}}</td>
                    <td>{{statusIcon .Viable}}</td>
                </tr>
                {{end}}
            </tbody>
        </table>
        {{end}}

        <h2>Cleanup Summary</h2>
        <div class="info-grid">
            <div class="info-box">
                <div class="info-label">Total Actions</div>
                <div class="info-value">{{.CleanupSummary.TotalActions}}</div>
            </div>
            <div class="info-box">
                <div class="info-label">Succeeded</div>
                <div class="info-value">{{.CleanupSummary.Succeeded}}</div>
            </div>
            <div class="info-box">
                <div class="info-label">Failed</div>
                <div class="info-value">{{.CleanupSummary.Failed}}</div>
            </div>
        </div>

        {{if .Errors}}
        <h2>Errors</h2>
        <ul>
            {{range .Errors}}
            <li>{{.}}</li>
            {{end}}
        </ul>
        {{end}}

        <p style="text-align: center; color: #7f8c8d; margin-top: 30px;">
            Generated by wireless-emulator • {{formatTime .EndTime}}
        </p>
    </div>
</body>
</html>
`
