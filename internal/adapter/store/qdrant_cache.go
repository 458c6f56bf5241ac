package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"loantrack-core/internal/domain/entity"
)

// QdrantCache is the semantic cache for parse results. A parse is only valid
// for the calendar day it was produced under (relative dates resolve against
// "today"), so lookups filter on the stored day, not just vector similarity.
type QdrantCache struct {
	client         *qdrant.Client
	collectionName string
	threshold      float32
}

func NewQdrantCache(client *qdrant.Client, collectionName string, threshold float32) *QdrantCache {
	return &QdrantCache{
		client:         client,
		collectionName: collectionName,
		threshold:      threshold,
	}
}

func (s *QdrantCache) InitCollection(ctx context.Context, dim uint64) error {
	_, err := s.client.GetCollectionInfo(ctx, s.collectionName)
	if err != nil {
		st, ok := status.FromError(err)
		if ok && st.Code() == codes.NotFound {
			err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
				CollectionName: s.collectionName,
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
					Size:     dim,
					Distance: qdrant.Distance_Cosine,
				}),
			})
			if err != nil {
				return fmt.Errorf("failed to create collection: %w", err)
			}
		} else {
			return err
		}
	}

	// Keyword index on the day field so the same-day filter stays cheap.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collectionName,
		FieldName:      "today",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		log.Printf("[CACHE] Warning: could not create today index (might already exist): %v", err)
	}

	return nil
}

func (s *QdrantCache) Lookup(ctx context.Context, vector []float32, today string) (*entity.ParsedCommand, error) {
	res, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("today", today)},
		},
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
		ScoreThreshold: &s.threshold,
	})
	if err != nil || len(res) == 0 {
		return nil, err
	}

	raw := res[0].Payload["parsed"].GetStringValue()
	var cmd entity.ParsedCommand
	if err := json.Unmarshal([]byte(raw), &cmd); err != nil {
		return nil, fmt.Errorf("corrupt cache payload: %w", err)
	}
	return &cmd, nil
}

func (s *QdrantCache) Save(ctx context.Context, command, today string, cmd *entity.ParsedCommand, vector []float32) error {
	parsed, err := json.Marshal(cmd)
	if err != nil {
		return err
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(uuid.NewString()),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"command":    command,
					"parsed":     string(parsed),
					"today":      today,
					"created_at": time.Now().Unix(),
				}),
			},
		},
	})
	return err
}
