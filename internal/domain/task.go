package domain

// Task is a single to-do entry. IDs are assigned by the task store and are
// strictly increasing in creation order.
type Task struct {
	ID    uint64 `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}
