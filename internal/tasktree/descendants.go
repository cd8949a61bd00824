package tasktree

import (
	"fmt"

	"github.com/openhrms/taskcycle/internal/models"
	"gorm.io/gorm"
)

// Descendants returns the IDs of every task below root, walking the parent
// edge level by level. The root itself is excluded. A visited set guards the
// walk against a corrupted parent chain.
func Descendants(db *gorm.DB, rootID string) ([]string, error) {
	visited := map[string]bool{rootID: true}
	var result []string

	frontier := []string{rootID}
	for len(frontier) > 0 {
		var children []models.Task
		if err := db.Select("id").Where("parent_id IN ?", frontier).Find(&children).Error; err != nil {
			return nil, fmt.Errorf("tasktree: descendants of %s: %w", rootID, err)
		}

		frontier = frontier[:0]
		for _, c := range children {
			if visited[c.ID] {
				continue
			}
			visited[c.ID] = true
			result = append(result, c.ID)
			frontier = append(frontier, c.ID)
		}
	}

	return result, nil
}
