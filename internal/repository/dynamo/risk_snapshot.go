package dynamo

import (
	"context"
	"fmt"
	"time"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/logger"
	"vehicle-risk-backend/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const DefaultRiskSnapshotTable = "booking_risk_snapshots"

// sortKeyTimeLayout is fixed width so string order matches time order.
const sortKeyTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// API is the subset of the DynamoDB client used by the store.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type riskSnapshotItem struct {
	BookingID             string  `dynamodbav:"booking_id"`
	SortKey               string  `dynamodbav:"sk"`
	CalculatedAt          string  `dynamodbav:"calculated_at"`
	ID                    string  `dynamodbav:"id"`
	UserID                string  `dynamodbav:"user_id,omitempty"`
	Country               string  `dynamodbav:"country"`
	Bucket                string  `dynamodbav:"bucket"`
	VehicleValueUsd       float64 `dynamodbav:"vehicle_value_usd"`
	FxRate                float64 `dynamodbav:"fx_rate"`
	DeductibleUsd         float64 `dynamodbav:"deductible_usd"`
	RolloverDeductibleUsd float64 `dynamodbav:"rollover_deductible_usd"`
	HoldEstimatedArs      int64   `dynamodbav:"hold_estimated_ars"`
	HoldEstimatedUsd      float64 `dynamodbav:"hold_estimated_usd"`
	CreditSecurityUsd     float64 `dynamodbav:"credit_security_usd"`
	CreditSecurityArs     int64   `dynamodbav:"credit_security_ars"`
	CoverageUpgrade       string  `dynamodbav:"coverage_upgrade"`
	GuaranteeType         string  `dynamodbav:"guarantee_type,omitempty"`
	DriverClass           *int    `dynamodbav:"driver_class,omitempty"`
	GuaranteeMultiplier   float64 `dynamodbav:"guarantee_multiplier"`
	GuaranteeDiscountPct  int     `dynamodbav:"guarantee_discount_pct"`
	RequiresRevalidation  bool    `dynamodbav:"requires_revalidation"`
}

// RiskSnapshotStore persists snapshots in a table keyed by booking_id (partition)
// and sk (sort), where sk is "<calculated_at>#<id>".
type RiskSnapshotStore struct {
	ddb       API
	tableName string
}

var _ repository.RiskSnapshotRepository = (*RiskSnapshotStore)(nil)

func NewRiskSnapshotStore(ddb API, tableName string) *RiskSnapshotStore {
	if tableName == "" {
		tableName = DefaultRiskSnapshotTable
	}
	return &RiskSnapshotStore{ddb: ddb, tableName: tableName}
}

func (r *RiskSnapshotStore) Save(ctx context.Context, s *domain.RiskSnapshot) error {
	av, err := attributevalue.MarshalMap(toItem(s))
	if err != nil {
		return err
	}

	logger.ExternalServiceCall("dynamodb", "PutItem", "table", r.tableName, "bookingID", s.BookingID)
	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#sk)"),
		ExpressionAttributeNames: map[string]string{
			"#sk": "sk",
		},
	})
	logger.ExternalServiceResult("dynamodb", "PutItem", err, "bookingID", s.BookingID)
	return err
}

func (r *RiskSnapshotStore) GetLatestByBookingID(ctx context.Context, bookingID string) (*domain.RiskSnapshot, error) {
	logger.ExternalServiceCall("dynamodb", "Query", "table", r.tableName, "bookingID", bookingID)
	out, err := r.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": "booking_id",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: bookingID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
		ConsistentRead:   aws.Bool(true),
	})
	logger.ExternalServiceResult("dynamodb", "Query", err, "bookingID", bookingID)
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, repository.ErrNotFound
	}

	var it riskSnapshotItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &it); err != nil {
		return nil, err
	}
	return fromItem(it)
}

func toItem(s *domain.RiskSnapshot) riskSnapshotItem {
	calculatedAt := s.CalculatedAt.UTC().Format(sortKeyTimeLayout)
	return riskSnapshotItem{
		BookingID:             s.BookingID,
		SortKey:               calculatedAt + "#" + s.ID,
		CalculatedAt:          calculatedAt,
		ID:                    s.ID,
		UserID:                s.UserID,
		Country:               s.Country,
		Bucket:                string(s.Bucket),
		VehicleValueUsd:       s.VehicleValueUsd,
		FxRate:                s.FxRate,
		DeductibleUsd:         s.DeductibleUsd,
		RolloverDeductibleUsd: s.RolloverDeductibleUsd,
		HoldEstimatedArs:      s.HoldEstimatedArs,
		HoldEstimatedUsd:      s.HoldEstimatedUsd,
		CreditSecurityUsd:     s.CreditSecurityUsd,
		CreditSecurityArs:     s.CreditSecurityArs,
		CoverageUpgrade:       string(s.CoverageUpgrade),
		GuaranteeType:         string(s.GuaranteeType),
		DriverClass:           s.DriverClass,
		GuaranteeMultiplier:   s.GuaranteeMultiplier,
		GuaranteeDiscountPct:  s.GuaranteeDiscountPct,
		RequiresRevalidation:  s.RequiresRevalidation,
	}
}

func fromItem(it riskSnapshotItem) (*domain.RiskSnapshot, error) {
	calculatedAt, err := time.Parse(sortKeyTimeLayout, it.CalculatedAt)
	if err != nil {
		return nil, fmt.Errorf("risk snapshot %s has a malformed calculated_at %q: %w", it.ID, it.CalculatedAt, err)
	}
	return &domain.RiskSnapshot{
		ID:                    it.ID,
		BookingID:             it.BookingID,
		UserID:                it.UserID,
		Country:               it.Country,
		Bucket:                domain.Bucket(it.Bucket),
		VehicleValueUsd:       it.VehicleValueUsd,
		FxRate:                it.FxRate,
		DeductibleUsd:         it.DeductibleUsd,
		RolloverDeductibleUsd: it.RolloverDeductibleUsd,
		HoldEstimatedArs:      it.HoldEstimatedArs,
		HoldEstimatedUsd:      it.HoldEstimatedUsd,
		CreditSecurityUsd:     it.CreditSecurityUsd,
		CreditSecurityArs:     it.CreditSecurityArs,
		CoverageUpgrade:       domain.CoverageUpgrade(it.CoverageUpgrade),
		GuaranteeType:         domain.GuaranteeType(it.GuaranteeType),
		DriverClass:           it.DriverClass,
		GuaranteeMultiplier:   it.GuaranteeMultiplier,
		GuaranteeDiscountPct:  it.GuaranteeDiscountPct,
		RequiresRevalidation:  it.RequiresRevalidation,
		CalculatedAt:          calculatedAt,
	}, nil
}
