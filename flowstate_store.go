package goSignup

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const flowStateRecordVersionV1 = 1

var (
	errFlowStateNotFound         = errors.New("flow state record not found")
	errFlowStateRedisUnavailable = errors.New("flow state redis unavailable")
)

// flowStateRecord is the persisted snapshot of an in-progress signup wizard.
// Password material and OTP codes are never persisted.
type flowStateRecord struct {
	Step             SignupStep
	AccountType      AccountType
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	Address          string
	DOB              string
	RedirectPath     string
	RedirectFallback bool
	UpdatedAt        int64
}

type flowStateStore struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

func newFlowStateStore(redisClient *redis.Client, cfg FlowStateConfig) *flowStateStore {
	return &flowStateStore{
		redis:  redisClient,
		prefix: cfg.RedisPrefix,
		ttl:    cfg.TTL,
	}
}

func (s *flowStateStore) key(flowID string) string {
	return s.prefix + ":flow:" + flowID
}

// Save describes the save operation and its observable behavior.
//
// Save may return an error when input validation, dependency calls, or security checks fail.
// Save does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *flowStateStore) Save(ctx context.Context, flowID string, record *flowStateRecord) error {
	encoded, err := encodeFlowStateRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(flowID), encoded, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errFlowStateRedisUnavailable, err)
	}

	return nil
}

// Load describes the load operation and its observable behavior.
//
// Load may return an error when input validation, dependency calls, or security checks fail.
// Load does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *flowStateStore) Load(ctx context.Context, flowID string) (*flowStateRecord, error) {
	data, err := s.redis.Get(ctx, s.key(flowID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errFlowStateNotFound
		}
		return nil, fmt.Errorf("%w: %v", errFlowStateRedisUnavailable, err)
	}

	record, err := decodeFlowStateRecord(data)
	if err != nil {
		// Unreadable records are discarded so the caller starts clean.
		_ = s.redis.Del(ctx, s.key(flowID)).Err()
		return nil, errFlowStateNotFound
	}

	return record, nil
}

// Delete describes the delete operation and its observable behavior.
//
// Delete may return an error when input validation, dependency calls, or security checks fail.
// Delete does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *flowStateStore) Delete(ctx context.Context, flowID string) error {
	if err := s.redis.Del(ctx, s.key(flowID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errFlowStateRedisUnavailable, err)
	}
	return nil
}

func encodeFlowStateRecord(record *flowStateRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(flowStateRecordVersionV1)
	buf.WriteByte(byte(record.Step))

	var fallback byte
	if record.RedirectFallback {
		fallback = 1
	}
	buf.WriteByte(fallback)

	if err := binary.Write(&buf, binary.BigEndian, record.UpdatedAt); err != nil {
		return nil, err
	}

	for _, field := range []string{
		string(record.AccountType),
		record.FirstName,
		record.LastName,
		record.Email,
		record.Phone,
		record.Address,
		record.DOB,
		record.RedirectPath,
	} {
		if len(field) > 65535 {
			return nil, errors.New("flow state field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeFlowStateRecord(data []byte) (*flowStateRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != flowStateRecordVersionV1 {
		return nil, errors.New("invalid flow state record version")
	}

	step, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	fallback, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &flowStateRecord{
		Step:             SignupStep(step),
		RedirectFallback: fallback == 1,
	}

	if err := binary.Read(reader, binary.BigEndian, &record.UpdatedAt); err != nil {
		return nil, err
	}

	fields := make([]string, 8)
	for i := range fields {
		var fieldLen uint16
		if err := binary.Read(reader, binary.BigEndian, &fieldLen); err != nil {
			return nil, err
		}
		raw := make([]byte, fieldLen)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		fields[i] = string(raw)
	}

	record.AccountType = AccountType(fields[0])
	record.FirstName = fields[1]
	record.LastName = fields[2]
	record.Email = fields[3]
	record.Phone = fields[4]
	record.Address = fields[5]
	record.DOB = fields[6]
	record.RedirectPath = fields[7]

	return record, nil
}
