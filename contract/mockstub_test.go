package contract

import (
	"crypto/x509"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Test identities in Fabric's x509::<subject>::<issuer> form. The CN segment
// doubles as the bootstrap alias.
const (
	adminID = "x509::CN=admin::CN=ca.example.com"
	aliceID = "x509::CN=alice::CN=ca.example.com"
	bobID   = "x509::CN=bob::CN=ca.example.com"
	caraID  = "x509::CN=cara::CN=ca.example.com"
)

// compositeKeySep matches the shim's composite key encoding so keys built by
// the contract and keys built by tests agree.
const compositeKeySep = "\x00"

type mockEvent struct {
	name    string
	payload []byte
}

// mockStub is an in-memory shim.ChaincodeStubInterface. It keeps every event
// set during a transaction (the real stub keeps only the last) so tests can
// assert each notification individually.
type mockStub struct {
	state  map[string][]byte
	events []mockEvent
	txID   string
	txTime time.Time

	// invokeHandler services cross-chaincode calls. Unset means no
	// collaborator is reachable.
	invokeHandler func(chaincodeName string, args [][]byte, channel string) pb.Response
}

func newMockStub() *mockStub {
	return &mockStub{
		state:  map[string][]byte{},
		txID:   "tx-0001",
		txTime: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (ms *mockStub) GetState(key string) ([]byte, error) {
	value, ok := ms.state[key]
	if !ok {
		return nil, nil
	}
	return value, nil
}

func (ms *mockStub) PutState(key string, value []byte) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	ms.state[key] = value
	return nil
}

func (ms *mockStub) DelState(key string) error {
	delete(ms.state, key)
	return nil
}

func (ms *mockStub) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	key := compositeKeySep + objectType + compositeKeySep
	for _, attr := range attributes {
		key += attr + compositeKeySep
	}
	return key, nil
}

func (ms *mockStub) SplitCompositeKey(compositeKey string) (string, []string, error) {
	parts := strings.Split(strings.Trim(compositeKey, compositeKeySep), compositeKeySep)
	if len(parts) == 0 {
		return "", nil, errors.New("invalid composite key")
	}
	return parts[0], parts[1:], nil
}

func (ms *mockStub) sortedKeysWithPrefix(prefix string) []string {
	keys := []string{}
	for key := range ms.state {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (ms *mockStub) GetStateByPartialCompositeKey(objectType string, attributes []string) (shim.StateQueryIteratorInterface, error) {
	prefix, err := ms.CreateCompositeKey(objectType, attributes)
	if err != nil {
		return nil, err
	}
	// CreateCompositeKey appends a trailing separator per attribute; the
	// partial prefix must not require one after the last given attribute.
	prefix = strings.TrimSuffix(prefix, compositeKeySep)
	if len(attributes) == 0 {
		prefix += compositeKeySep
	}
	kvs := []*queryresult.KV{}
	for _, key := range ms.sortedKeysWithPrefix(prefix) {
		kvs = append(kvs, &queryresult.KV{Key: key, Value: ms.state[key]})
	}
	return &mockStateIterator{kvs: kvs}, nil
}

func (ms *mockStub) GetStateByPartialCompositeKeyWithPagination(objectType string, attributes []string, pageSize int32, bookmark string) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	iter, err := ms.GetStateByPartialCompositeKey(objectType, attributes)
	if err != nil {
		return nil, nil, err
	}
	all := iter.(*mockStateIterator).kvs

	start := 0
	if bookmark != "" {
		for i, kv := range all {
			if kv.Key >= bookmark {
				start = i
				break
			}
		}
	}
	end := start + int(pageSize)
	if end > len(all) {
		end = len(all)
	}
	nextBookmark := ""
	if end < len(all) {
		nextBookmark = all[end].Key
	}
	page := all[start:end]
	return &mockStateIterator{kvs: page}, &pb.QueryResponseMetadata{
		Bookmark:            nextBookmark,
		FetchedRecordsCount: int32(len(page)),
	}, nil
}

func (ms *mockStub) InvokeChaincode(chaincodeName string, args [][]byte, channel string) pb.Response {
	if ms.invokeHandler == nil {
		return pb.Response{Status: 500, Message: fmt.Sprintf("chaincode '%s' not reachable", chaincodeName)}
	}
	return ms.invokeHandler(chaincodeName, args, channel)
}

func (ms *mockStub) SetEvent(name string, payload []byte) error {
	ms.events = append(ms.events, mockEvent{name: name, payload: payload})
	return nil
}

// eventNames lists the names of all events set during the transaction, in
// order.
func (ms *mockStub) eventNames() []string {
	names := []string{}
	for _, ev := range ms.events {
		names = append(names, ev.name)
	}
	return names
}

func (ms *mockStub) hasEvent(name string) bool {
	for _, ev := range ms.events {
		if ev.name == name {
			return true
		}
	}
	return false
}

func (ms *mockStub) GetTxID() string      { return ms.txID }
func (ms *mockStub) GetChannelID() string { return "testchannel" }

func (ms *mockStub) GetTxTimestamp() (*timestamppb.Timestamp, error) {
	return timestamppb.New(ms.txTime), nil
}

// Remaining interface methods are not exercised by this contract.

func (ms *mockStub) GetArgs() [][]byte                             { return nil }
func (ms *mockStub) GetStringArgs() []string                       { return nil }
func (ms *mockStub) GetFunctionAndParameters() (string, []string)  { return "", nil }
func (ms *mockStub) GetArgsSlice() ([]byte, error)                 { return nil, nil }
func (ms *mockStub) GetCreator() ([]byte, error)                   { return nil, nil }
func (ms *mockStub) GetTransient() (map[string][]byte, error)      { return nil, nil }
func (ms *mockStub) GetBinding() ([]byte, error)                   { return nil, nil }
func (ms *mockStub) GetDecorations() map[string][]byte             { return nil }
func (ms *mockStub) GetSignedProposal() (*pb.SignedProposal, error) { return nil, nil }

func (ms *mockStub) SetStateValidationParameter(key string, ep []byte) error { return nil }
func (ms *mockStub) GetStateValidationParameter(key string) ([]byte, error)  { return nil, nil }

func (ms *mockStub) GetStateByRange(startKey, endKey string) (shim.StateQueryIteratorInterface, error) {
	return &mockStateIterator{}, nil
}

func (ms *mockStub) GetStateByRangeWithPagination(startKey, endKey string, pageSize int32, bookmark string) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	return &mockStateIterator{}, &pb.QueryResponseMetadata{}, nil
}

func (ms *mockStub) GetQueryResult(query string) (shim.StateQueryIteratorInterface, error) {
	return nil, errors.New("rich queries not supported by mock stub")
}

func (ms *mockStub) GetQueryResultWithPagination(query string, pageSize int32, bookmark string) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	return nil, nil, errors.New("rich queries not supported by mock stub")
}

func (ms *mockStub) GetHistoryForKey(key string) (shim.HistoryQueryIteratorInterface, error) {
	return nil, errors.New("history queries not supported by mock stub")
}

func (ms *mockStub) GetPrivateData(collection, key string) ([]byte, error)     { return nil, nil }
func (ms *mockStub) GetPrivateDataHash(collection, key string) ([]byte, error) { return nil, nil }
func (ms *mockStub) PutPrivateData(collection string, key string, value []byte) error {
	return nil
}
func (ms *mockStub) DelPrivateData(collection, key string) error   { return nil }
func (ms *mockStub) PurgePrivateData(collection, key string) error { return nil }
func (ms *mockStub) SetPrivateDataValidationParameter(collection, key string, ep []byte) error {
	return nil
}
func (ms *mockStub) GetPrivateDataValidationParameter(collection, key string) ([]byte, error) {
	return nil, nil
}
func (ms *mockStub) GetPrivateDataByRange(collection, startKey, endKey string) (shim.StateQueryIteratorInterface, error) {
	return &mockStateIterator{}, nil
}
func (ms *mockStub) GetPrivateDataByPartialCompositeKey(collection, objectType string, keys []string) (shim.StateQueryIteratorInterface, error) {
	return &mockStateIterator{}, nil
}
func (ms *mockStub) GetPrivateDataQueryResult(collection, query string) (shim.StateQueryIteratorInterface, error) {
	return nil, errors.New("rich queries not supported by mock stub")
}

type mockStateIterator struct {
	kvs []*queryresult.KV
	pos int
}

func (it *mockStateIterator) HasNext() bool { return it.pos < len(it.kvs) }

func (it *mockStateIterator) Next() (*queryresult.KV, error) {
	if !it.HasNext() {
		return nil, errors.New("no more items")
	}
	kv := it.kvs[it.pos]
	it.pos++
	return kv, nil
}

func (it *mockStateIterator) Close() error { return nil }

type mockClientIdentity struct {
	id    string
	mspID string
}

func (ci *mockClientIdentity) GetID() (string, error)    { return ci.id, nil }
func (ci *mockClientIdentity) GetMSPID() (string, error) { return ci.mspID, nil }
func (ci *mockClientIdentity) GetAttributeValue(attrName string) (string, bool, error) {
	return "", false, nil
}
func (ci *mockClientIdentity) AssertAttributeValue(attrName, attrValue string) error { return nil }
func (ci *mockClientIdentity) GetX509Certificate() (*x509.Certificate, error)        { return nil, nil }

// mockTxContext pairs a stub with a caller identity. Tests swap contexts to
// act as different identities against the same ledger state.
type mockTxContext struct {
	stub *mockStub
	ci   *mockClientIdentity
}

func (tc *mockTxContext) GetStub() shim.ChaincodeStubInterface { return tc.stub }
func (tc *mockTxContext) GetClientIdentity() cid.ClientIdentity { return tc.ci }

func ctxFor(stub *mockStub, callerID string) *mockTxContext {
	return &mockTxContext{stub: stub, ci: &mockClientIdentity{id: callerID, mspID: "Org1MSP"}}
}

// bootstrappedContract returns a contract with adminID bootstrapped as the
// first admin, sharing one ledger across all callers.
func bootstrappedContract(t *testing.T) (*ImpactBadgeSmartContract, *mockStub) {
	t.Helper()
	sc := &ImpactBadgeSmartContract{}
	stub := newMockStub()
	require.NoError(t, sc.BootstrapLedger(ctxFor(stub, adminID)))
	return sc, stub
}

// registerVerified registers an identity under its alias and marks it
// verified, acting as the bootstrap admin.
func registerVerified(t *testing.T, sc *ImpactBadgeSmartContract, stub *mockStub, fullID, alias string) {
	t.Helper()
	adminCtx := ctxFor(stub, adminID)
	require.NoError(t, sc.RegisterIdentity(adminCtx, fullID, alias))
	require.NoError(t, sc.VerifyIdentity(adminCtx, alias))
}

// issueFor registers, verifies, and issues a badge for an identity, returning
// the badge id.
func issueFor(t *testing.T, sc *ImpactBadgeSmartContract, stub *mockStub, fullID, alias string) uint64 {
	t.Helper()
	registerVerified(t, sc, stub, fullID, alias)
	badgeID, err := sc.IssueBadge(ctxFor(stub, fullID))
	require.NoError(t, err)
	return badgeID
}
