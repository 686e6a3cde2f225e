// Package extract reads source snapshot files into staging rows. It is a
// mechanical step: values are carried as text, headers are normalized, and
// lines that cannot be read at all are skipped and counted.
package extract

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/revlake/revlake/internal/staging/domain"
	"gorm.io/datatypes"
)

// Customers reads the customer snapshot CSV.
func Customers(r io.Reader) ([]domain.RawCustomer, int, error) {
	records, skipped, err := readCSV(r)
	if err != nil {
		return nil, 0, err
	}

	rows := make([]domain.RawCustomer, 0, len(records))
	for _, rec := range records {
		rows = append(rows, domain.RawCustomer{
			CustomerID:     rec["customer_id"],
			CompanyName:    rec["company_name"],
			Country:        rec["country"],
			Address:        rec["address"],
			SignupDate:     rec["signup_date"],
			SubscriptionID: rec["subscription_id"],
		})
	}
	return rows, skipped, nil
}

// Subscriptions reads the subscription snapshot CSV.
func Subscriptions(r io.Reader) ([]domain.RawSubscription, int, error) {
	records, skipped, err := readCSV(r)
	if err != nil {
		return nil, 0, err
	}

	rows := make([]domain.RawSubscription, 0, len(records))
	for _, rec := range records {
		rows = append(rows, domain.RawSubscription{
			SubscriptionID: rec["subscription_id"],
			Status:         rec["status"],
			StartDate:      rec["start_date"],
			EndDate:        rec["end_date"],
			Currency:       rec["currency"],
			Amount:         rec["amount"],
			Period:         rec["period"],
			PlanName:       rec["plan_name"],
		})
	}
	return rows, skipped, nil
}

type appEventLine struct {
	EventTimestamp string         `json:"event_timestamp"`
	EventType      string         `json:"event_type"`
	FeatureName    string         `json:"feature_name"`
	CustomerID     string         `json:"customer_id"`
	Metadata       map[string]any `json:"metadata"`
}

// AppEvents reads the product-usage feed, one JSON object per line.
func AppEvents(r io.Reader) ([]domain.RawAppEvent, int, error) {
	var rows []domain.RawAppEvent
	skipped := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var evt appEventLine
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			skipped++
			continue
		}
		rows = append(rows, domain.RawAppEvent{
			EventTimestamp: evt.EventTimestamp,
			EventType:      evt.EventType,
			FeatureName:    evt.FeatureName,
			CustomerID:     evt.CustomerID,
			Metadata:       datatypes.JSONMap(evt.Metadata),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	return rows, skipped, nil
}

// readCSV returns one header-keyed map per data row. Headers are lowercased
// and trimmed; rows with unreadable quoting are skipped, not fatal.
func readCSV(r io.Reader) ([]map[string]string, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	for i, col := range header {
		header[i] = strings.ToLower(strings.TrimSpace(col))
	}

	var records []map[string]string
	skipped := 0
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				continue
			}
			return nil, 0, err
		}

		rec := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(fields) {
				rec[col] = strings.TrimSpace(fields[i])
			}
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}
