package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Errors reported by the client.
var (
	ErrClosed        = errors.New("chain: connection closed")
	ErrBlockNotFound = errors.New("chain: block not found")
)

// Client is a JSON-RPC client over a single websocket connection to a
// Substrate node. Calls are correlated by request id; one client serves
// concurrent callers. A client that loses its connection is dead: callers
// are expected to dial a fresh one.
type Client struct {
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex
	nextID  atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan rpcResult
	subs    map[string]chan Header
	closed  bool

	done chan struct{}
}

// NewClient dials the node and starts the response dispatcher.
func NewClient(ctx context.Context, url string, logger *zap.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", url, err)
	}
	c := &Client{
		conn:    conn,
		logger:  logger,
		pending: make(map[uint64]chan rpcResult),
		subs:    make(map[string]chan Header),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Close tears the connection down. Pending calls fail and subscription
// channels are closed.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.conn.Close()
}

func (c *Client) readLoop() {
	defer c.teardown()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			wasClosed := c.closed
			c.mu.Unlock()
			if !wasClosed {
				c.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		var env rpcEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("malformed rpc frame", zap.Error(err))
			continue
		}
		switch {
		case env.ID != nil:
			c.mu.Lock()
			ch, ok := c.pending[*env.ID]
			delete(c.pending, *env.ID)
			c.mu.Unlock()
			if ok {
				ch <- rpcResult{Result: env.Result, Err: env.Error}
			}
		case env.Params != nil:
			var h Header
			if err := json.Unmarshal(env.Params.Result, &h); err != nil {
				c.logger.Warn("malformed subscription payload", zap.Error(err))
				continue
			}
			c.mu.Lock()
			ch, ok := c.subs[env.Params.Subscription]
			c.mu.Unlock()
			if !ok {
				continue
			}
			select {
			case ch <- h:
			default:
				// A slow consumer recovers skipped heights through gap
				// replay, so dropping beats blocking the dispatcher.
				c.logger.Debug("dropping finalized head", zap.Uint64("number", uint64(h.Number)))
			}
		}
	}
}

func (c *Client) teardown() {
	c.mu.Lock()
	c.closed = true
	for id, ch := range c.pending {
		delete(c.pending, id)
		ch <- rpcResult{Err: &rpcError{Code: -1, Message: "connection closed"}}
	}
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()
	close(c.done)
	c.conn.Close()
}

// Call performs one RPC and decodes its result into out when out is non-nil.
func (c *Client) Call(ctx context.Context, method string, params []any, out any) error {
	id := c.nextID.Add(1)
	ch := make(chan rpcResult, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("chain: marshal %s: %w", method, err)
	}
	c.writeMu.Lock()
	err = c.conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("chain: send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	case res := <-ch:
		if res.Err != nil {
			return fmt.Errorf("%s: %w", method, res.Err)
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(res.Result, out); err != nil {
			return fmt.Errorf("chain: decode %s result: %w", method, err)
		}
		return nil
	}
}

// GetBlockHash resolves a block number to its hash.
func (c *Client) GetBlockHash(ctx context.Context, number uint64) (common.Hash, error) {
	var hash *common.Hash
	if err := c.Call(ctx, "chain_getBlockHash", []any{number}, &hash); err != nil {
		return common.Hash{}, err
	}
	if hash == nil {
		return common.Hash{}, fmt.Errorf("%w: height %d", ErrBlockNotFound, number)
	}
	return *hash, nil
}

// GetStorage reads one storage value at the given block. A missing value
// yields (nil, nil).
func (c *Client) GetStorage(ctx context.Context, key []byte, at common.Hash) ([]byte, error) {
	var out *hexutil.Bytes
	if err := c.Call(ctx, "state_getStorage", []any{hexutil.Bytes(key), at}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, nil
	}
	return *out, nil
}

// GetMetadata fetches the runtime metadata blob the node currently serves.
func (c *Client) GetMetadata(ctx context.Context) ([]byte, error) {
	var out hexutil.Bytes
	if err := c.Call(ctx, "state_getMetadata", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRuntimeVersion fetches the node's runtime identifier.
func (c *Client) GetRuntimeVersion(ctx context.Context) (RuntimeVersion, error) {
	var out RuntimeVersion
	err := c.Call(ctx, "state_getRuntimeVersion", nil, &out)
	return out, err
}

// GetBlock fetches the block behind hash together with the finalization
// event log stored under eventsKey. Body and events travel on separate
// requests issued concurrently.
func (c *Client) GetBlock(ctx context.Context, hash common.Hash, eventsKey []byte) (Block, error) {
	var (
		sb     *signedBlock
		events []byte
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Call(gctx, "chain_getBlock", []any{hash}, &sb)
	})
	g.Go(func() error {
		raw, err := c.GetStorage(gctx, eventsKey, hash)
		events = raw
		return err
	})
	if err := g.Wait(); err != nil {
		return Block{}, err
	}
	// An unknown hash comes back as a null result, not an rpc error.
	if sb == nil {
		return Block{}, fmt.Errorf("%w: %s", ErrBlockNotFound, hash)
	}

	extrinsics := make([][]byte, len(sb.Block.Extrinsics))
	for i, xt := range sb.Block.Extrinsics {
		extrinsics[i] = xt
	}
	return Block{
		Hash:       hash,
		Number:     uint64(sb.Block.Header.Number),
		Extrinsics: extrinsics,
		Events:     events,
	}, nil
}

// SubscribeFinalizedHeads subscribes to finalized headers. The returned
// channel closes when the connection drops; a consumer that wants to keep
// going dials a new client.
func (c *Client) SubscribeFinalizedHeads(ctx context.Context) (<-chan Header, error) {
	var subID string
	if err := c.Call(ctx, "chain_subscribeFinalizedHeads", nil, &subID); err != nil {
		return nil, err
	}
	ch := make(chan Header, 16)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, nil
	}
	c.subs[subID] = ch
	c.mu.Unlock()
	return ch, nil
}
