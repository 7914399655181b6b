package repository

// Option applies a configuration option to the ShardedStore.
type Option func(*ShardedStore)

// WithShards sets the number of independently locked shards.
func WithShards(n int) Option {
	return func(s *ShardedStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}
