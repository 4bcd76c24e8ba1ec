// Package sharepoint talks to SharePoint Online through Microsoft Graph:
// site resolution, guest user enumeration via sharing permissions, and
// document library walks. The report runner drives it one site at a time.
package sharepoint

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/drives"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/sites"

	"sptool/internal/common/logger"
	"sptool/internal/common/ratelimit"
	"sptool/internal/common/retry"
	"sptool/internal/report"
)

// pageSize is the $top value used for collection requests.
const pageSize = 200

// SiteInfo identifies a resolved site collection.
type SiteInfo struct {
	ID     string
	Title  string
	WebURL string
}

// Client is the per-site data access surface the report runner needs.
type Client interface {
	// ResolveSite maps an absolute site URL to its Graph site identity.
	ResolveSite(ctx context.Context, siteURL string) (*SiteInfo, error)
	// CollectGuestUsers emits every guest user with access to the site.
	CollectGuestUsers(ctx context.Context, site *SiteInfo, emit func(report.GuestUser)) error
	// CollectDocuments emits every file in the site's default document library.
	CollectDocuments(ctx context.Context, site *SiteInfo, emit func(report.Document)) error
}

// GraphClient implements Client over the Microsoft Graph SDK. Every API
// call goes through the shared rate limiter and the retry policy, so
// throttled calls back off instead of failing the whole site.
type GraphClient struct {
	sdk        *msgraphsdk.GraphServiceClient
	limiter    *ratelimit.Limiter
	maxRetries int
	retryDelay time.Duration
	log        *slog.Logger
}

// NewGraphClient wraps an initialized Graph SDK client.
func NewGraphClient(sdk *msgraphsdk.GraphServiceClient, limiter *ratelimit.Limiter, maxRetries int, retryDelay time.Duration, log *slog.Logger) *GraphClient {
	return &GraphClient{
		sdk:        sdk,
		limiter:    limiter,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		log:        log,
	}
}

// call runs one Graph operation behind the rate limiter and retry policy.
func (c *GraphClient) call(ctx context.Context, operation func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return retry.WithBackoff(ctx, c.maxRetries, c.retryDelay, operation)
}

// graphSiteID converts an absolute SharePoint URL to the Graph site
// addressing form hostname:/server/relative/path.
func graphSiteID(siteURL string) (string, error) {
	u, err := url.Parse(siteURL)
	if err != nil {
		return "", fmt.Errorf("invalid site URL %q: %w", siteURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid site URL %q: missing host", siteURL)
	}
	path := strings.TrimSuffix(u.Path, "/")
	if path == "" {
		// Root site collection
		return strings.ToLower(u.Host), nil
	}
	return strings.ToLower(u.Host) + ":" + path, nil
}

func (c *GraphClient) ResolveSite(ctx context.Context, siteURL string) (*SiteInfo, error) {
	siteID, err := graphSiteID(siteURL)
	if err != nil {
		return nil, err
	}

	logger.LogDebug(c.log, "Resolving site", "siteID", siteID)

	var site models.Siteable
	err = c.call(ctx, func() error {
		result, apiErr := c.sdk.Sites().BySiteId(siteID).Get(ctx, nil)
		if apiErr == nil {
			site = result
		}
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve site %s: %w", siteURL, err)
	}

	info := &SiteInfo{WebURL: siteURL}
	if site.GetId() != nil {
		info.ID = *site.GetId()
	}
	if site.GetDisplayName() != nil {
		info.Title = *site.GetDisplayName()
	} else if site.GetName() != nil {
		info.Title = *site.GetName()
	}
	if site.GetWebUrl() != nil {
		info.WebURL = *site.GetWebUrl()
	}
	return info, nil
}

func (c *GraphClient) CollectGuestUsers(ctx context.Context, site *SiteInfo, emit func(report.GuestUser)) error {
	requestConfig := &sites.ItemPermissionsRequestBuilderGetRequestConfiguration{
		QueryParameters: &sites.ItemPermissionsRequestBuilderGetQueryParameters{
			Top: int32Ptr(pageSize),
		},
	}

	nextLink := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var page models.PermissionCollectionResponseable
		err := c.call(ctx, func() error {
			var apiErr error
			if nextLink == "" {
				page, apiErr = c.sdk.Sites().BySiteId(site.ID).Permissions().Get(ctx, requestConfig)
			} else {
				page, apiErr = c.sdk.Sites().BySiteId(site.ID).Permissions().WithUrl(nextLink).Get(ctx, nil)
			}
			return apiErr
		})
		if err != nil {
			return fmt.Errorf("failed to fetch permissions for %s: %w", site.WebURL, err)
		}

		for _, perm := range page.GetValue() {
			for _, user := range permissionGuests(perm) {
				user.SiteURL = site.WebURL
				emit(user)
			}
		}

		if page.GetOdataNextLink() == nil || *page.GetOdataNextLink() == "" {
			return nil
		}
		nextLink = *page.GetOdataNextLink()
	}
}

// permissionGuests extracts the guest identities a sharing permission
// grants access to. Member accounts are skipped.
func permissionGuests(perm models.Permissionable) []report.GuestUser {
	identitySets := perm.GetGrantedToIdentitiesV2()
	if single := perm.GetGrantedToV2(); single != nil {
		identitySets = append(identitySets, single)
	}

	invitedBy := ""
	if inv := perm.GetInvitation(); inv != nil {
		if by := inv.GetInvitedBy(); by != nil && by.GetUser() != nil && by.GetUser().GetDisplayName() != nil {
			invitedBy = *by.GetUser().GetDisplayName()
		}
	}

	var guests []report.GuestUser
	for _, set := range identitySets {
		identity := set.GetUser()
		if identity == nil {
			continue
		}
		user := report.GuestUser{InvitedBy: invitedBy}
		if identity.GetDisplayName() != nil {
			user.DisplayName = *identity.GetDisplayName()
		}
		if identity.GetId() != nil {
			user.LoginName = *identity.GetId()
		}
		// SharePoint identities carry email and loginName outside the
		// typed model
		extra := identity.GetAdditionalData()
		if email, ok := extra["email"].(*string); ok && email != nil {
			user.Email = *email
		}
		if login, ok := extra["loginName"].(*string); ok && login != nil {
			user.LoginName = *login
		}
		if !isGuestLogin(user.LoginName) {
			continue
		}
		guests = append(guests, user)
	}
	return guests
}

// isGuestLogin reports whether an identity is an external/guest account.
// SharePoint marks invited externals with #ext# in the login name and
// anonymous link redemptions with the spo guest urn.
func isGuestLogin(loginName string) bool {
	login := strings.ToLower(loginName)
	return strings.Contains(login, "#ext#") ||
		strings.Contains(login, "urn:spo:guest") ||
		strings.HasPrefix(login, "live.com#")
}

func (c *GraphClient) CollectDocuments(ctx context.Context, site *SiteInfo, emit func(report.Document)) error {
	// Enumerate the site's document libraries
	var libraries models.DriveCollectionResponseable
	err := c.call(ctx, func() error {
		result, apiErr := c.sdk.Sites().BySiteId(site.ID).Drives().Get(ctx, nil)
		if apiErr == nil {
			libraries = result
		}
		return apiErr
	})
	if err != nil {
		return fmt.Errorf("failed to list document libraries for %s: %w", site.WebURL, err)
	}

	for _, drive := range libraries.GetValue() {
		if drive.GetId() == nil {
			continue
		}
		library := "Documents"
		if drive.GetName() != nil {
			library = *drive.GetName()
		}
		if err := c.collectDriveDocuments(ctx, site, *drive.GetId(), library, emit); err != nil {
			return err
		}
	}
	return nil
}

// collectDriveDocuments walks one document library and emits every file.
func (c *GraphClient) collectDriveDocuments(ctx context.Context, site *SiteInfo, driveID, library string, emit func(report.Document)) error {
	// Breadth-first walk over the library's folders
	folders := []string{"root"}
	for len(folders) > 0 {
		folderID := folders[0]
		folders = folders[1:]

		nextLink := ""
		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			var page models.DriveItemCollectionResponseable
			err := c.call(ctx, func() error {
				var apiErr error
				if nextLink == "" {
					requestConfig := &drives.ItemItemsItemChildrenRequestBuilderGetRequestConfiguration{
						QueryParameters: &drives.ItemItemsItemChildrenRequestBuilderGetQueryParameters{
							Top: int32Ptr(pageSize),
						},
					}
					page, apiErr = c.sdk.Drives().ByDriveId(driveID).Items().ByDriveItemId(folderID).Children().Get(ctx, requestConfig)
				} else {
					page, apiErr = c.sdk.Drives().ByDriveId(driveID).Items().ByDriveItemId(folderID).Children().WithUrl(nextLink).Get(ctx, nil)
				}
				return apiErr
			})
			if err != nil {
				return fmt.Errorf("failed to list folder contents for %s: %w", site.WebURL, err)
			}

			for _, item := range page.GetValue() {
				if item.GetFolder() != nil {
					if item.GetId() != nil {
						folders = append(folders, *item.GetId())
					}
					continue
				}
				if item.GetFile() == nil {
					continue
				}
				emit(documentFromItem(item, site.WebURL, library))
			}

			if page.GetOdataNextLink() == nil || *page.GetOdataNextLink() == "" {
				break
			}
			nextLink = *page.GetOdataNextLink()
		}
	}
	return nil
}

func documentFromItem(item models.DriveItemable, siteURL, library string) report.Document {
	doc := report.Document{SiteURL: siteURL, Library: library}
	if item.GetName() != nil {
		doc.Name = *item.GetName()
		if dot := strings.LastIndex(doc.Name, "."); dot >= 0 && dot < len(doc.Name)-1 {
			doc.Extension = strings.ToLower(doc.Name[dot+1:])
		}
	}
	if item.GetSize() != nil {
		doc.SizeBytes = *item.GetSize()
	}
	if item.GetLastModifiedDateTime() != nil {
		doc.LastModified = *item.GetLastModifiedDateTime()
	}
	if by := item.GetLastModifiedBy(); by != nil && by.GetUser() != nil && by.GetUser().GetDisplayName() != nil {
		doc.ModifiedBy = *by.GetUser().GetDisplayName()
	}
	if item.GetWebUrl() != nil {
		if u, err := url.Parse(*item.GetWebUrl()); err == nil {
			doc.ServerRelativeURL = u.Path
		}
	}
	return doc
}

func int32Ptr(v int32) *int32 {
	return &v
}
