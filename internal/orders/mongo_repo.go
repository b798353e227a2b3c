package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
)

const ordersCollection = "orders"

type orderDocument struct {
	ID                  string               `bson:"_id"`
	UserID              string               `bson:"user_id"`
	Items               []itemDocument       `bson:"items"`
	TotalAmount         primitive.Decimal128 `bson:"total_amount"`
	PickupDate          string               `bson:"pickup_date"`
	PickupTime          string               `bson:"pickup_time"`
	SpecialInstructions string               `bson:"special_instructions"`
	Status              string               `bson:"status"`
	PaymentID           *string              `bson:"payment_id,omitempty"`
	PaymentStatus       *string              `bson:"payment_status,omitempty"`
	ReceiptURL          *string              `bson:"receipt_url,omitempty"`
	CreatedAt           time.Time            `bson:"created_at"`
	UpdatedAt           time.Time            `bson:"updated_at"`
}

type itemDocument struct {
	ID        string               `bson:"id"`
	ProductID string               `bson:"product_id"`
	Name      string               `bson:"name"`
	Quantity  int                  `bson:"quantity"`
	Price     primitive.Decimal128 `bson:"price"`
}

// MongoRepository stores orders as documents with embedded line items.
type MongoRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoRepository binds the repository to the orders collection of db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection(ordersCollection),
		now:        time.Now,
	}
}

// EnsureIndexes creates the lookup indexes and the unique payment index.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "payment_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create order indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	now := r.now().UTC()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Status == "" {
		order.Status = enums.OrderStatusPending
	}
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
		order.Items[i].CreatedAt = now
	}

	doc, err := toOrderDocument(order)
	if err != nil {
		return nil, err
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) && order.PaymentID != nil {
			return nil, ErrDuplicatePayment
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return order, nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *MongoRepository) FindByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"payment_id": paymentID})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var doc orderDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return toOrderModel(&doc)
}

func (r *MongoRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return r.find(ctx, bson.M{"user_id": userID.String()})
}

func (r *MongoRepository) List(ctx context.Context, filters ListFilters) ([]models.Order, error) {
	filter := bson.M{}
	if filters.Status != nil {
		filter["status"] = filters.Status.String()
	}
	if c := filters.Before; c != nil {
		filter["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$lt": c.CreatedAt}},
			bson.M{"created_at": c.CreatedAt, "_id": bson.M{"$lt": c.ID.String()}},
		}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if filters.Limit > 0 {
		opts.SetLimit(int64(filters.Limit))
	}
	return r.find(ctx, filter, opts)
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Order, error) {
	if len(opts) == 0 {
		opts = append(opts, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	}
	cursor, err := r.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	out := make([]models.Order, 0, len(docs))
	for i := range docs {
		order, err := toOrderModel(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *order)
	}
	return out, nil
}

// UpdateStatus overwrites status and updated_at only.
func (r *MongoRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"status": status.String(), "updated_at": r.now().UTC()}},
	)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func toOrderDocument(order *models.Order) (*orderDocument, error) {
	total, err := toDecimal128(order.TotalAmount)
	if err != nil {
		return nil, err
	}
	doc := &orderDocument{
		ID:                  order.ID.String(),
		UserID:              order.UserID.String(),
		Items:               make([]itemDocument, 0, len(order.Items)),
		TotalAmount:         total,
		PickupDate:          order.PickupDate,
		PickupTime:          order.PickupTime,
		SpecialInstructions: order.SpecialInstructions,
		Status:              order.Status.String(),
		PaymentID:           order.PaymentID,
		PaymentStatus:       order.PaymentStatus,
		ReceiptURL:          order.ReceiptURL,
		CreatedAt:           order.CreatedAt,
		UpdatedAt:           order.UpdatedAt,
	}
	for _, item := range order.Items {
		price, err := toDecimal128(item.Price)
		if err != nil {
			return nil, err
		}
		doc.Items = append(doc.Items, itemDocument{
			ID:        item.ID.String(),
			ProductID: item.ProductID.String(),
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     price,
		})
	}
	return doc, nil
}

func toOrderModel(doc *orderDocument) (*models.Order, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("order id %q: %w", doc.ID, err)
	}
	userID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return nil, fmt.Errorf("order user id %q: %w", doc.UserID, err)
	}
	total, err := decimal.NewFromString(doc.TotalAmount.String())
	if err != nil {
		return nil, fmt.Errorf("order total: %w", err)
	}
	order := &models.Order{
		ID:                  id,
		UserID:              userID,
		Items:               make([]models.OrderItem, 0, len(doc.Items)),
		TotalAmount:         total,
		PickupDate:          doc.PickupDate,
		PickupTime:          doc.PickupTime,
		SpecialInstructions: doc.SpecialInstructions,
		Status:              enums.OrderStatus(doc.Status),
		PaymentID:           doc.PaymentID,
		PaymentStatus:       doc.PaymentStatus,
		ReceiptURL:          doc.ReceiptURL,
		CreatedAt:           doc.CreatedAt,
		UpdatedAt:           doc.UpdatedAt,
	}
	for i, item := range doc.Items {
		itemID, _ := uuid.Parse(item.ID)
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("order item product %q: %w", item.ProductID, err)
		}
		price, err := decimal.NewFromString(item.Price.String())
		if err != nil {
			return nil, fmt.Errorf("order item price: %w", err)
		}
		order.Items = append(order.Items, models.OrderItem{
			ID:        itemID,
			OrderID:   id,
			Position:  i,
			ProductID: productID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     price,
			CreatedAt: doc.CreatedAt,
		})
	}
	return order, nil
}

func toDecimal128(value decimal.Decimal) (primitive.Decimal128, error) {
	out, err := primitive.ParseDecimal128(value.StringFixed(2))
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("convert %s to decimal128: %w", value, err)
	}
	return out, nil
}
