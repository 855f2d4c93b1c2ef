package vector

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/gijiroku/internal/config"
	"github.com/hyperjump/gijiroku/pkg/utils"
	"github.com/pinecone-io/go-pinecone/v2/pinecone"
)

const remoteBatchSize = 200

// PineconeIndex stores one scope as a namespace of a managed Pinecone index.
type PineconeIndex struct {
	conn       *pinecone.IndexConnection
	namespace  string
	dimensions int // caller dimension
	serviceDim int // dimension the service index was created with
	fit        bool
}

// NewPineconeIndexes connects to the configured Pinecone index and returns one
// Index per scope. APIKey and Index are required. When the service dimension
// differs from dim the call fails unless fit is set, in which case vectors are
// zero-padded or truncated.
func NewPineconeIndexes(ctx context.Context, cfg config.PineconeConfig, dim int, fit bool) (map[Scope]Index, error) {
	if cfg.APIKey == "" || cfg.Index == "" {
		return nil, fmt.Errorf("%w: pinecone api_key and index must be set", ErrMissingConfig)
	}
	serviceDim := cfg.Dimension
	if serviceDim <= 0 {
		serviceDim = dim
	}
	if serviceDim != dim && !fit {
		return nil, fmt.Errorf("pinecone index %q: %w", cfg.Index, dimensionError(dim, serviceDim))
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create pinecone client: %w", err)
	}
	host := cfg.Host
	if host == "" {
		desc, err := pc.DescribeIndex(ctx, cfg.Index)
		if err != nil {
			return nil, fmt.Errorf("describe pinecone index %q: %w", cfg.Index, err)
		}
		host = desc.Host
	}

	out := make(map[Scope]Index, len(Scopes))
	for _, scope := range Scopes {
		conn, err := pc.Index(pinecone.NewIndexConnParams{Host: host, Namespace: string(scope)})
		if err != nil {
			for _, idx := range out {
				_ = idx.Close()
			}
			return nil, fmt.Errorf("connect pinecone namespace %s: %w", scope, err)
		}
		out[scope] = &PineconeIndex{
			conn:       conn,
			namespace:  string(scope),
			dimensions: dim,
			serviceDim: serviceDim,
			fit:        fit,
		}
	}
	return out, nil
}

// Type returns the index type identifier.
func (p *PineconeIndex) Type() string {
	return string(IndexTypePinecone)
}

// BatchSize caps one upsert request.
func (p *PineconeIndex) BatchSize() int {
	return remoteBatchSize
}

func (p *PineconeIndex) values(v []float32) ([]float32, error) {
	if len(v) != p.dimensions {
		return nil, dimensionError(len(v), p.dimensions)
	}
	if p.fit {
		return utils.FitDimension(v, p.serviceDim), nil
	}
	return v, nil
}

// Upsert writes vectors into the scope namespace. Pinecone replaces by id.
func (p *PineconeIndex) Upsert(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	if len(ids) == 0 {
		return nil
	}
	pcVectors := make([]*pinecone.Vector, len(ids))
	for i, id := range ids {
		values, err := p.values(vectors[i])
		if err != nil {
			return err
		}
		pcVectors[i] = &pinecone.Vector{Id: id, Values: values}
	}
	if _, err := p.conn.UpsertVectors(ctx, pcVectors); err != nil {
		return fmt.Errorf("pinecone upsert %s: %w", p.namespace, err)
	}
	return nil
}

// Search queries the scope namespace.
func (p *PineconeIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	values, err := p.values(query)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	resp, err := p.conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector: values,
		TopK:   uint32(k),
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone query %s: %w", p.namespace, err)
	}
	results := make([]Result, 0, len(resp.Matches))
	for _, match := range resp.Matches {
		if match == nil || match.Vector == nil {
			continue
		}
		results = append(results, Result{ID: match.Vector.Id, Score: float64(match.Score)})
	}
	return results, nil
}

// Remove deletes ids from the scope namespace.
func (p *PineconeIndex) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := p.conn.DeleteVectorsById(ctx, ids); err != nil {
		return fmt.Errorf("pinecone delete %s: %w", p.namespace, err)
	}
	return nil
}

// Save is a no-op: the service owns persistence.
func (p *PineconeIndex) Save(path string) error { return nil }

// Load is a no-op: the service owns persistence.
func (p *PineconeIndex) Load(path string) error { return nil }

// Size returns the namespace vector count reported by the service, or 0 when
// the stats call fails.
func (p *PineconeIndex) Size() int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stats, err := p.conn.DescribeIndexStats(ctx)
	if err != nil || stats == nil {
		return 0
	}
	if ns, ok := stats.Namespaces[p.namespace]; ok && ns != nil {
		return int(ns.VectorCount)
	}
	return 0
}

// Close releases the namespace connection.
func (p *PineconeIndex) Close() error {
	return p.conn.Close()
}
