package callback

// Result is the remote endpoint's final answer for a task.
type Result struct {
	Success  bool      `json:"success"`
	Result   string    `json:"result,omitempty"`
	Error    string    `json:"error,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

type Metadata struct {
	Chunks         int   `json:"chunks,omitempty"`
	ThinkingTimeMs int64 `json:"thinking_time_ms,omitempty"`
}

// StreamChunk is one element of a streamed answer. Only the chunk
// marked Done reaches the user.
type StreamChunk struct {
	Chunk      string `json:"chunk"`
	Done       bool   `json:"done"`
	ChunkIndex int    `json:"chunk_index,omitempty"`
}
