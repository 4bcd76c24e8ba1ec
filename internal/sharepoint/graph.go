package sharepoint

import (
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"

	"sptool/internal/auth"
	"sptool/internal/common/logger"
)

// SetupGraphClient initializes the Microsoft Graph SDK client over a
// resolved credential.
func SetupGraphClient(cred azcore.TokenCredential, log *slog.Logger) (*msgraphsdk.GraphServiceClient, error) {
	// Scopes for Application Permissions usually are https://graph.microsoft.com/.default
	client, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, []string{auth.GraphScope})
	if err != nil {
		return nil, fmt.Errorf("graph client initialization failed: %w", err)
	}
	logger.LogDebug(log, "Graph SDK client initialized", "scope", auth.GraphScope)
	return client, nil
}
