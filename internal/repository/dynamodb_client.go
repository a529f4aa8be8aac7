package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"shop-bot/internal/domain"
)

const (
	skGreeting  = "GREETING#"
	skShopping  = "SHOPPING#"
	skDialog    = "DIALOG#"
	ttlDuration = 30 * 24 * time.Hour // 30-day TTL on conversation state
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Client stores user-scoped slot records and the conversation-scoped dialog
// stack in a single DynamoDB table.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

func userPK(channelID, userID string) string {
	return "USER#" + channelID + "#" + userID
}

func convPK(channelID, conversationID string) string {
	return "CONV#" + channelID + "#" + conversationID
}

func ttlValue() int64 {
	return time.Now().Add(ttlDuration).Unix()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// LoadUserState reads every record stored for the user. Records that were
// never written come back nil.
func (c *Client) LoadUserState(ctx context.Context, channelID, userID string) (domain.UserState, error) {
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: userPK(channelID, userID)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.UserState{}, fmt.Errorf("repository: LoadUserState query: %w", err)
	}

	var st domain.UserState
	for _, item := range out.Items {
		sk, err := strAttr(item, "SK")
		if err != nil {
			return domain.UserState{}, fmt.Errorf("repository: LoadUserState: %w", err)
		}
		switch sk {
		case skGreeting:
			g := itemToGreeting(item)
			st.Greeting = &g
		case skShopping:
			s, err := itemToShopping(item)
			if err != nil {
				return domain.UserState{}, fmt.Errorf("repository: LoadUserState decode shopping: %w", err)
			}
			st.Shopping = &s
		}
	}
	return st, nil
}

// SaveUserState writes the present records in one transaction. It is a no-op
// when the user has no records yet.
func (c *Client) SaveUserState(ctx context.Context, channelID, userID string, st domain.UserState) error {
	pk := userPK(channelID, userID)
	var puts []types.TransactWriteItem
	if st.Greeting != nil {
		puts = append(puts, types.TransactWriteItem{Put: &types.Put{
			TableName: aws.String(c.tableName),
			Item:      greetingItem(pk, *st.Greeting),
		}})
	}
	if st.Shopping != nil {
		puts = append(puts, types.TransactWriteItem{Put: &types.Put{
			TableName: aws.String(c.tableName),
			Item:      shoppingItem(pk, *st.Shopping),
		}})
	}
	if len(puts) == 0 {
		return nil
	}

	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: puts})
	if err != nil {
		return fmt.Errorf("repository: SaveUserState: %w", err)
	}
	return nil
}

// LoadDialogState returns the conversation's dialog stack, empty when none was saved.
func (c *Client) LoadDialogState(ctx context.Context, channelID, conversationID string) (domain.DialogState, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: convPK(channelID, conversationID)},
			"SK": &types.AttributeValueMemberS{Value: skDialog},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.DialogState{}, fmt.Errorf("repository: LoadDialogState get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.DialogState{}, nil
	}

	st, err := itemToDialogState(out.Item)
	if err != nil {
		return domain.DialogState{}, fmt.Errorf("repository: LoadDialogState decode stack: %w", err)
	}
	return st, nil
}

// SaveDialogState replaces the conversation's dialog stack and refreshes its TTL.
func (c *Client) SaveDialogState(ctx context.Context, channelID, conversationID string, st domain.DialogState) error {
	item, err := dialogStateItem(convPK(channelID, conversationID), st)
	if err != nil {
		return fmt.Errorf("repository: SaveDialogState: %w", err)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: SaveDialogState: %w", err)
	}
	return nil
}

func greetingItem(pk string, g domain.GreetingState) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: pk},
		"SK":        &types.AttributeValueMemberS{Value: skGreeting},
		"name":      &types.AttributeValueMemberS{Value: g.Name},
		"city":      &types.AttributeValueMemberS{Value: g.City},
		"updatedAt": &types.AttributeValueMemberS{Value: now()},
	}
}

func shoppingItem(pk string, s domain.ShoppingState) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: pk},
		"SK":        &types.AttributeValueMemberS{Value: skShopping},
		"category":  &types.AttributeValueMemberS{Value: s.Category},
		"priceMin":  &types.AttributeValueMemberN{Value: formatFloat(s.PriceMin)},
		"priceMax":  &types.AttributeValueMemberN{Value: formatFloat(s.PriceMax)},
		"updatedAt": &types.AttributeValueMemberS{Value: now()},
	}
}

func dialogStateItem(pk string, st domain.DialogState) (map[string]types.AttributeValue, error) {
	frames := make([]types.AttributeValue, 0, len(st.Stack))
	for _, f := range st.Stack {
		m := map[string]types.AttributeValue{
			"dialogId": &types.AttributeValueMemberS{Value: f.DialogID},
			"step":     &types.AttributeValueMemberN{Value: strconv.Itoa(f.Step)},
		}
		if f.PromptID != "" {
			m["promptId"] = &types.AttributeValueMemberS{Value: f.PromptID}
		}
		if f.Prompt != nil {
			raw, err := json.Marshal(f.Prompt)
			if err != nil {
				return nil, fmt.Errorf("encode prompt for %q: %w", f.DialogID, err)
			}
			m["prompt"] = &types.AttributeValueMemberS{Value: string(raw)}
		}
		frames = append(frames, &types.AttributeValueMemberM{Value: m})
	}
	return map[string]types.AttributeValue{
		"PK":           &types.AttributeValueMemberS{Value: pk},
		"SK":           &types.AttributeValueMemberS{Value: skDialog},
		"stack":        &types.AttributeValueMemberL{Value: frames},
		"lastActivity": &types.AttributeValueMemberS{Value: now()},
		"ttl":          &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", ttlValue())},
	}, nil
}

func itemToGreeting(item map[string]types.AttributeValue) domain.GreetingState {
	name, _ := strAttr(item, "name") // allow empty
	city, _ := strAttr(item, "city") // allow empty
	return domain.GreetingState{Name: name, City: city}
}

func itemToShopping(item map[string]types.AttributeValue) (domain.ShoppingState, error) {
	category, _ := strAttr(item, "category") // allow empty
	priceMin, err := floatAttr(item, "priceMin")
	if err != nil {
		return domain.ShoppingState{}, err
	}
	priceMax, err := floatAttr(item, "priceMax")
	if err != nil {
		return domain.ShoppingState{}, err
	}
	return domain.ShoppingState{Category: category, PriceMin: priceMin, PriceMax: priceMax}, nil
}

func itemToDialogState(item map[string]types.AttributeValue) (domain.DialogState, error) {
	v, ok := item["stack"]
	if !ok {
		return domain.DialogState{}, nil
	}
	list, ok := v.(*types.AttributeValueMemberL)
	if !ok {
		return domain.DialogState{}, errors.New(`repository: attribute "stack" is not a list`)
	}

	var st domain.DialogState
	for i, av := range list.Value {
		m, ok := av.(*types.AttributeValueMemberM)
		if !ok {
			return domain.DialogState{}, fmt.Errorf("repository: frame %d is not a map", i)
		}
		frame, err := mapToFrame(m.Value)
		if err != nil {
			return domain.DialogState{}, fmt.Errorf("repository: frame %d: %w", i, err)
		}
		st.Stack = append(st.Stack, frame)
	}
	return st, nil
}

func mapToFrame(m map[string]types.AttributeValue) (domain.DialogFrame, error) {
	dialogID, err := strAttr(m, "dialogId")
	if err != nil {
		return domain.DialogFrame{}, err
	}
	step, err := intAttr(m, "step")
	if err != nil {
		return domain.DialogFrame{}, err
	}
	promptID, _ := strAttr(m, "promptId") // allow empty

	frame := domain.DialogFrame{DialogID: dialogID, Step: step, PromptID: promptID}
	if raw, err := strAttr(m, "prompt"); err == nil {
		var prompt domain.Activity
		if err := json.Unmarshal([]byte(raw), &prompt); err != nil {
			return domain.DialogFrame{}, fmt.Errorf("repository: decode prompt: %w", err)
		}
		frame.Prompt = &prompt
	}
	return frame, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

func floatAttr(item map[string]types.AttributeValue, key string) (float64, error) {
	v, ok := item[key]
	if !ok {
		return 0, nil
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
