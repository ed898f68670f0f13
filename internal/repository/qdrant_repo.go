package repository

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"github.com/timmy/shotrank/internal/domain"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const (
	defaultVectorDimension = 1024
	scrollPageSize         = 256
)

// pointNamespace seeds deterministic point ids derived from (model, image id).
var pointNamespace = uuid.MustParse("6f1c9a52-3d0e-4b8a-9d6c-2a7e51f0c4b3")

// QdrantConnectionConfig holds configuration for Qdrant connection
type QdrantConnectionConfig struct {
	Host            string
	Port            int
	Collection      string
	APIKey          string // Qdrant Cloud API Key (enables TLS automatically)
	UseTLS          bool   // Explicitly enable TLS without API Key
	VectorDimension int
}

// apiKeyInterceptor creates a unary interceptor that adds API key to metadata
func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// QdrantVectorStore keeps image vectors in a Qdrant collection. It is used as
// a bulk vector source, not for approximate search.
type QdrantVectorStore struct {
	conn            *grpc.ClientConn
	pointsClient    pb.PointsClient
	collectClient   pb.CollectionsClient
	collectionName  string
	vectorDimension int
}

// NewQdrantVectorStore creates a new QdrantVectorStore.
// Supports both local Qdrant (insecure) and Qdrant Cloud (TLS + API Key).
func NewQdrantVectorStore(cfg *QdrantConnectionConfig) (*QdrantVectorStore, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	vectorDimension := cfg.VectorDimension
	if vectorDimension <= 0 {
		vectorDimension = defaultVectorDimension
	}

	var opts []grpc.DialOption
	if cfg.UseTLS || cfg.APIKey != "" {
		creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS13})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantVectorStore{
		conn:            conn,
		pointsClient:    pb.NewPointsClient(conn),
		collectClient:   pb.NewCollectionsClient(conn),
		collectionName:  cfg.Collection,
		vectorDimension: vectorDimension,
	}, nil
}

// Close closes the gRPC connection
func (s *QdrantVectorStore) Close() error {
	return s.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist and checks the
// vector size of an existing one.
func (s *QdrantVectorStore) EnsureCollection(ctx context.Context) error {
	info, err := s.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: s.collectionName,
	})
	if err == nil {
		if size, ok := collectionVectorSize(info.GetResult()); ok && size != uint64(s.vectorDimension) {
			return fmt.Errorf("collection %s has vector size %d, expected %d", s.collectionName, size, s.vectorDimension)
		}
		return nil
	}

	_, err = s.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(s.vectorDimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func collectionVectorSize(info *pb.CollectionInfo) (uint64, bool) {
	vectors := info.GetConfig().GetParams().GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}
	if size := vectors.GetParams().GetSize(); size > 0 {
		return size, true
	}
	return 0, false
}

// PointID derives the deterministic point id of an image vector.
func PointID(model, imageID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(model+":"+imageID)).String()
}

func uuidPoint(id string) *pb.PointId {
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}}
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

// Upsert implements VectorStore.
func (s *QdrantVectorStore) Upsert(ctx context.Context, e *domain.ImageEmbedding) error {
	_, err := s.pointsClient.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collectionName,
		Points: []*pb.PointStruct{
			{
				Id: uuidPoint(PointID(e.Model, e.ImageID)),
				Vectors: &pb.Vectors{
					VectorsOptions: &pb.Vectors_Vector{
						Vector: &pb.Vector{Data: []float32(e.Vector)},
					},
				},
				Payload: map[string]*pb.Value{
					"image_id":     stringValue(e.ImageID),
					"model":        stringValue(e.Model),
					"content_hash": stringValue(e.ContentHash),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	return nil
}

// Load implements VectorStore. Specific ids are fetched with GetPoints;
// a nil ids slice scrolls through every point of the model.
func (s *QdrantVectorStore) Load(ctx context.Context, model string, ids []string) (map[string][]float32, error) {
	if ids == nil {
		return s.scrollAll(ctx, model)
	}

	out := make(map[string][]float32, len(ids))
	for _, chunk := range chunkIDs(ids) {
		pointIDs := make([]*pb.PointId, len(chunk))
		for i, id := range chunk {
			pointIDs[i] = uuidPoint(PointID(model, id))
		}

		resp, err := s.pointsClient.Get(ctx, &pb.GetPoints{
			CollectionName: s.collectionName,
			Ids:            pointIDs,
			WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
			WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get points: %w", err)
		}
		collectPoints(resp.GetResult(), out)
	}
	return out, nil
}

func (s *QdrantVectorStore) scrollAll(ctx context.Context, model string) (map[string][]float32, error) {
	out := make(map[string][]float32)
	limit := uint32(scrollPageSize)
	var offset *pb.PointId

	for {
		resp, err := s.pointsClient.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: s.collectionName,
			Filter: &pb.Filter{
				Must: []*pb.Condition{
					{
						ConditionOneOf: &pb.Condition_Field{
							Field: &pb.FieldCondition{
								Key:   "model",
								Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: model}},
							},
						},
					},
				},
			},
			Offset:      offset,
			Limit:       &limit,
			WithPayload: &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
			WithVectors: &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll points: %w", err)
		}

		collectPoints(resp.GetResult(), out)

		offset = resp.GetNextPageOffset()
		if offset == nil {
			return out, nil
		}
	}
}

func collectPoints(points []*pb.RetrievedPoint, out map[string][]float32) {
	for _, p := range points {
		imageID := p.GetPayload()["image_id"].GetStringValue()
		vector := p.GetVectors().GetVector().GetData()
		if imageID == "" || len(vector) == 0 {
			continue
		}
		out[imageID] = vector
	}
}
