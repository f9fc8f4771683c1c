package cursor

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
)

// maxTeamPages bounds pagination in case the API keeps reporting more pages.
const maxTeamPages = 50

// FetchTeamMembers returns every member of the team, in API order.
func (c *Client) FetchTeamMembers(ctx context.Context, teamID int64) ([]models.Member, error) {
	var members []models.Member
	seen := make(map[string]bool)

	for page := 1; page <= maxTeamPages; page++ {
		payload, err := sjson.SetBytes([]byte(`{}`), "teamId", teamID)
		if err != nil {
			return nil, fmt.Errorf("failed to build team spend payload: %w", err)
		}
		if page > 1 {
			if payload, err = sjson.SetBytes(payload, "page", page); err != nil {
				return nil, fmt.Errorf("failed to build team spend payload: %w", err)
			}
		}

		body, err := c.post(ctx, endpointTeamSpend, payload)
		if err != nil {
			return nil, err
		}

		pageMembers, totalPages, err := parseTeamSpend(body)
		if err != nil {
			return nil, err
		}
		for _, m := range pageMembers {
			if seen[m.Email] {
				continue
			}
			seen[m.Email] = true
			members = append(members, m)
		}

		if page >= totalPages {
			break
		}
	}

	return members, nil
}

func parseTeamSpend(body []byte) ([]models.Member, int, error) {
	if !gjson.ValidBytes(body) {
		return nil, 0, &DecodeError{Endpoint: endpointTeamSpend, Err: errors.New("invalid JSON")}
	}
	root := gjson.ParseBytes(body)
	spend := root.Get("teamMemberSpend")
	if !spend.IsArray() {
		return nil, 0, &DecodeError{Endpoint: endpointTeamSpend, Err: errors.New("missing teamMemberSpend")}
	}

	var members []models.Member
	for _, item := range spend.Array() {
		email := models.NormalizeEmail(item.Get("email").String())
		if email == "" {
			continue
		}
		members = append(members, models.Member{
			UserID: item.Get("userId").Int(),
			Email:  email,
			Name:   item.Get("name").String(),
			Role:   item.Get("role").String(),
		})
	}

	totalPages := int(root.Get("totalPages").Int())
	if totalPages < 1 {
		totalPages = 1
	}
	return members, totalPages, nil
}
