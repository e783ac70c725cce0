package llm

import (
	"context"
	"sync"
	"time"

	"catalystcore/config"
	"catalystcore/logger"
	"catalystcore/types"
)

// BatchScore is the §6 batch driver: it pre-filters items by a fast
// prescale score so only high-potential candidates reach the (expensive)
// model, warms the model up once, then scores the survivors in small
// batches with a pause between them. Grounded on
// classify.classify_batch_with_llm's prescale filter + batch loop +
// prime_ollama_gpu warmup. Returns a map from NewsItem.ID to the scored
// sentiment; items that were filtered out or failed to score are simply
// absent from the map rather than mapped to a fake zero, matching §7's
// "abstain, never a fake zero" rule.
func (c *Client) BatchScore(ctx context.Context, items []types.ScoredItem, cfg *config.Config) map[string]float64 {
	results := make(map[string]float64)

	candidates := make([]types.ScoredItem, 0, len(items))
	for _, item := range items {
		if item.TotalScore >= cfg.MistralMinPrescale {
			candidates = append(candidates, item)
		}
	}

	skipped := len(items) - len(candidates)
	logger.Infof("llm: batch_filter total=%d eligible=%d skipped=%d threshold=%.2f",
		len(items), len(candidates), skipped, cfg.MistralMinPrescale)

	if len(candidates) == 0 {
		return results
	}

	if err := c.Warmup(ctx); err != nil {
		logger.Warnf("llm: warmup failed, proceeding anyway: %v", err)
	}

	batchSize := cfg.MistralBatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	for i := 0; i < len(candidates); i += batchSize {
		end := i + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[i:end]

		logger.Infof("llm: batch_processing batch=%d/%d items=%d",
			(i/batchSize)+1, (len(candidates)+batchSize-1)/batchSize, len(batch))

		// Dispatched concurrently; Client.Query's own semaphore (§6,
		// LLM_MAX_CONCURRENT) is what actually bounds in-flight requests, so
		// a batch never exceeds the model's configured concurrency.
		var mu sync.Mutex
		var wg sync.WaitGroup
		for _, item := range batch {
			wg.Add(1)
			go func(item types.ScoredItem) {
				defer wg.Done()
				score, err := c.ScoreSentiment(ctx, item.Item)
				if err != nil {
					logger.Warnf("llm: sentiment scoring failed id=%s err=%v", item.Item.ID, err)
					return
				}
				mu.Lock()
				results[item.Item.ID] = score
				mu.Unlock()
			}(item)
		}
		wg.Wait()

		if end < len(candidates) {
			select {
			case <-time.After(cfg.MistralBatchDelay):
			case <-ctx.Done():
				return results
			}
		}
	}

	logger.Infof("llm: batch_complete total=%d scored=%d", len(items), len(results))
	return results
}
