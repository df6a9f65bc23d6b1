package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tbqa/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can ask the
knowledge graph questions.

Tools: answer, decompose, find_drugs, reset_conversation.
Resources: tbqa://history, tbqa://drugs/{text}.

All clients share one conversation. By default the server speaks JSON-RPC
over stdio; use --port to serve streamable HTTP instead.

Examples:
  # Stdio mode (for desktop assistants)
  tbqa mcp serve

  # HTTP mode (for MCP Inspector, remote access); GET /healthz is a liveness probe
  tbqa mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "tbqa": {
        "command": "/path/to/tbqa",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	svc, err := requireQA(cmd)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{QA: svc}, mcp.WithVersion(version))
	if err != nil {
		return err
	}

	ctx := cmdContext(cmd)
	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s/mcp\n", addr)
		return server.RunHTTP(ctx, addr)
	}
	return server.Run(ctx)
}
