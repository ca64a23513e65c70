package live

import "sync"

// ViewerRoster tracks what each connected user shares with the room.
type ViewerRoster struct {
	mu      sync.RWMutex
	viewers map[string]*ViewerPayload // userID -> viewer
}

func NewViewerRoster() *ViewerRoster {
	return &ViewerRoster{
		viewers: make(map[string]*ViewerPayload),
	}
}

func (vr *ViewerRoster) Update(userID string, v *ViewerPayload) {
	vr.mu.Lock()
	defer vr.mu.Unlock()
	vr.viewers[userID] = v
}

func (vr *ViewerRoster) Remove(userID string) {
	vr.mu.Lock()
	defer vr.mu.Unlock()
	delete(vr.viewers, userID)
}

func (vr *ViewerRoster) GetAll() map[string]*ViewerPayload {
	vr.mu.RLock()
	defer vr.mu.RUnlock()

	result := make(map[string]*ViewerPayload, len(vr.viewers))
	for k, v := range vr.viewers {
		result[k] = v
	}
	return result
}

func (vr *ViewerRoster) Len() int {
	vr.mu.RLock()
	defer vr.mu.RUnlock()
	return len(vr.viewers)
}

func (vr *ViewerRoster) StateMessage() *Message {
	return newMessage(TypeViewerState, ViewerStatePayload{Viewers: vr.GetAll()})
}
