package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/osmdelta/pkg/version"
)

// VersionInfo represents version information for the service
type VersionInfo struct {
	Version     string            `json:"version"`
	GoVersion   string            `json:"go_version,omitempty"`
	Commit      string            `json:"commit,omitempty"`
	BuildDate   string            `json:"build_date,omitempty"`
	VCSRevision string            `json:"vcs_revision,omitempty"`
	Settings    map[string]string `json:"settings,omitempty"`
}

// GetVersionTool returns a tool definition for retrieving version information
func GetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the version and build information of the osmdelta service"),
	)
}

// HandleGetVersion implements version information retrieval
func HandleGetVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := slog.Default().With("tool", "get_version")

	info := version.Info()
	versionInfo := VersionInfo{
		Version:   info["version"],
		GoVersion: info["go_version"],
		Commit:    info["commit"],
		BuildDate: info["build_date"],
		Settings:  make(map[string]string),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range bi.Settings {
			if setting.Key == "vcs.revision" {
				versionInfo.VCSRevision = setting.Value
			} else {
				versionInfo.Settings[setting.Key] = setting.Value
			}
		}
	}

	resultBytes, err := json.Marshal(versionInfo)
	if err != nil {
		logger.Error("failed to marshal version info", "error", err)
		return ErrorResponse("Failed to retrieve version information"), nil
	}

	return mcp.NewToolResultText(string(resultBytes)), nil
}
