package vector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/gijiroku/internal/config"
	"github.com/hyperjump/gijiroku/pkg/utils"
	"github.com/qdrant/go-client/qdrant"
)

const ownerIDKey = "owner_id"

// pointNamespace derives point ids for owner ids that are not UUIDs.
var pointNamespace = uuid.MustParse("5f0c3b1e-8f61-4c8e-9d0a-6a3f2b7c1e44")

// QdrantIndex stores one scope as a qdrant collection using cosine distance.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimensions int
	serviceDim int
	fit        bool
	closeOnce  *sync.Once
}

// NewQdrantIndexes connects to qdrant and returns one Index per scope, backed by
// the collections <prefix>_title and <prefix>_summary. Missing collections are
// created with the caller dimension.
func NewQdrantIndexes(ctx context.Context, cfg config.QdrantConfig, dim int, fit bool) (map[Scope]Index, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: qdrant host must be set", ErrMissingConfig)
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	prefix := cfg.CollectionPrefix
	if prefix == "" {
		prefix = "meetings"
	}

	once := &sync.Once{}
	out := make(map[Scope]Index, len(Scopes))
	for _, scope := range Scopes {
		name := prefix + "_" + string(scope)
		serviceDim, err := ensureCollection(ctx, client, name, dim)
		if err == nil && serviceDim != dim && !fit {
			err = fmt.Errorf("qdrant collection %q: %w", name, dimensionError(dim, serviceDim))
		}
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		out[scope] = &QdrantIndex{
			client:     client,
			collection: name,
			dimensions: dim,
			serviceDim: serviceDim,
			fit:        fit,
			closeOnce:  once,
		}
	}
	return out, nil
}

func ensureCollection(ctx context.Context, client *qdrant.Client, name string, dim int) (int, error) {
	exists, err := client.CollectionExists(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("check qdrant collection %q: %w", name, err)
	}
	if !exists {
		err := client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return 0, fmt.Errorf("create qdrant collection %q: %w", name, err)
		}
		return dim, nil
	}
	info, err := client.GetCollectionInfo(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("describe qdrant collection %q: %w", name, err)
	}
	size := int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
	if size == 0 {
		return dim, nil
	}
	return size, nil
}

// PointID maps an owner id to a qdrant point id. UUIDs are used as-is; other ids
// get a deterministic SHA-1 UUID.
func PointID(ownerID string) string {
	if id, err := uuid.Parse(ownerID); err == nil {
		return id.String()
	}
	return uuid.NewSHA1(pointNamespace, []byte(ownerID)).String()
}

// Type returns the index type identifier.
func (q *QdrantIndex) Type() string {
	return string(IndexTypeQdrant)
}

// BatchSize caps one upsert request.
func (q *QdrantIndex) BatchSize() int {
	return remoteBatchSize
}

func (q *QdrantIndex) values(v []float32) ([]float32, error) {
	if len(v) != q.dimensions {
		return nil, dimensionError(len(v), q.dimensions)
	}
	if q.fit {
		return utils.FitDimension(v, q.serviceDim), nil
	}
	return v, nil
}

// Upsert writes points and waits for the write to be applied.
func (q *QdrantIndex) Upsert(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	if len(ids) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, len(ids))
	for i, id := range ids {
		values, err := q.values(vectors[i])
		if err != nil {
			return err
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(id)),
			Vectors: qdrant.NewVectors(values...),
			Payload: map[string]*qdrant.Value{ownerIDKey: qdrant.NewValueString(id)},
		}
	}
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert %s: %w", q.collection, err)
	}
	return nil
}

// Search queries the collection and maps points back to owner ids.
func (q *QdrantIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	values, err := q.values(query)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(values...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query %s: %w", q.collection, err)
	}
	results := make([]Result, 0, len(points))
	for _, p := range points {
		id := p.GetPayload()[ownerIDKey].GetStringValue()
		if id == "" {
			id = p.GetId().GetUuid()
		}
		results = append(results, Result{ID: id, Score: float64(p.GetScore())})
	}
	return results, nil
}

// Remove deletes points for the given owner ids.
func (q *QdrantIndex) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(PointID(id))
	}
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant delete %s: %w", q.collection, err)
	}
	return nil
}

// Save is a no-op: the service owns persistence.
func (q *QdrantIndex) Save(path string) error { return nil }

// Load is a no-op: the service owns persistence.
func (q *QdrantIndex) Load(path string) error { return nil }

// Size returns the exact point count, or 0 when the count call fails.
func (q *QdrantIndex) Size() int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0
	}
	return int(n)
}

// Close closes the shared client once for both scopes.
func (q *QdrantIndex) Close() error {
	var err error
	q.closeOnce.Do(func() { err = q.client.Close() })
	return err
}
