package file

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/strandworks/strand/pkg/models"
)

// UsageRepository stores daily usage rollups as JSON files under
// <root>/usage/<workspace>_<day>.json. A mutex makes the read-modify-write
// upsert atomic within the process.
type UsageRepository struct {
	root string
	mu   sync.Mutex
}

func NewUsageRepository(root string) *UsageRepository {
	return &UsageRepository{root: root}
}

func (ur *UsageRepository) path(workspaceID, day string) string {
	return filepath.Join(ur.root, "usage", workspaceID+"_"+day+".json")
}

func (ur *UsageRepository) AddUsage(_ context.Context, workspaceID, day string, usage models.Usage, llmCalls int) error {
	ur.mu.Lock()
	defer ur.mu.Unlock()

	record := &models.UsageRecord{WorkspaceID: workspaceID, Day: day}

	data, err := os.ReadFile(ur.path(workspaceID, day))
	if err == nil {
		if err := json.Unmarshal(data, record); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	record.Usage.Add(usage)
	record.LLMCalls += llmCalls

	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(ur.path(workspaceID, day), out, 0o644)
}

func (ur *UsageRepository) MonthlyUsage(ctx context.Context, workspaceID, month string) (models.Usage, error) {
	records, err := ur.DailyRecords(ctx, workspaceID, month)
	if err != nil {
		return models.Usage{}, err
	}

	var total models.Usage
	for _, record := range records {
		total.Add(record.Usage)
	}

	return total, nil
}

func (ur *UsageRepository) DailyRecords(_ context.Context, workspaceID, month string) ([]*models.UsageRecord, error) {
	ur.mu.Lock()
	defer ur.mu.Unlock()

	root := os.DirFS(filepath.Join(ur.root, "usage"))

	jsonFiles, err := fs.Glob(root, workspaceID+"_"+month+"-*.json")
	if err != nil {
		return nil, err
	}

	sort.Strings(jsonFiles)

	records := make([]*models.UsageRecord, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		data, err := os.ReadFile(filepath.Join(ur.root, "usage", file))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}

			return nil, err
		}

		var record models.UsageRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, err
		}

		// Glob patterns treat the separator literally; double-check the
		// workspace prefix so "ws-1" never matches "ws-10".
		if record.WorkspaceID != workspaceID || !strings.HasPrefix(record.Day, month) {
			continue
		}

		records = append(records, &record)
	}

	return records, nil
}
