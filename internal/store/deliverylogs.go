package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/notification-pipeline/internal/model"
)

const insertDeliveryLog = `
INSERT INTO delivery_logs (
id, notification_id, attempt_number, status, response_data, error_message, attempted_at
) VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7)
`

const selectDeliveryLogs = `
SELECT id, notification_id, attempt_number, status, response_data, error_message, attempted_at
FROM delivery_logs
WHERE notification_id = $1
ORDER BY attempt_number ASC
`

// AppendDeliveryLog writes one attempt row to the audit trail. Logs are
// append-only; there is no update path.
func (s *NotificationStore) AppendDeliveryLog(ctx context.Context, log model.DeliveryLog) (model.DeliveryLog, error) {
	log.ID = uuid.NewString()
	log.AttemptedAt = time.Now().UTC()

	var responseData []byte
	if log.ResponseData != nil {
		encoded, err := json.Marshal(log.ResponseData)
		if err != nil {
			return model.DeliveryLog{}, fmt.Errorf("marshal response data: %w", err)
		}
		responseData = encoded
	}

	_, err := s.pool.Exec(ctx, insertDeliveryLog,
		log.ID,
		log.NotificationID,
		log.AttemptNumber,
		string(log.Status),
		responseData,
		log.ErrorMessage,
		log.AttemptedAt,
	)
	if err != nil {
		return model.DeliveryLog{}, fmt.Errorf("insert delivery log: %w", err)
	}
	return log, nil
}

func (s *NotificationStore) ListDeliveryLogs(ctx context.Context, notificationID string) ([]model.DeliveryLog, error) {
	rows, err := s.pool.Query(ctx, selectDeliveryLogs, notificationID)
	if err != nil {
		return nil, fmt.Errorf("list delivery logs: %w", err)
	}
	defer rows.Close()

	var out []model.DeliveryLog
	for rows.Next() {
		var (
			log          model.DeliveryLog
			responseData []byte
			errorMessage *string
		)
		if err := rows.Scan(&log.ID, &log.NotificationID, &log.AttemptNumber, &log.Status, &responseData, &errorMessage, &log.AttemptedAt); err != nil {
			return nil, fmt.Errorf("scan delivery log: %w", err)
		}
		if errorMessage != nil {
			log.ErrorMessage = *errorMessage
		}
		if len(responseData) > 0 {
			if err := json.Unmarshal(responseData, &log.ResponseData); err != nil {
				return nil, fmt.Errorf("decode response data: %w", err)
			}
		}
		out = append(out, log)
	}
	return out, rows.Err()
}
