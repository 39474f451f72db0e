package heap

// SetAllocationUserData attaches userData to a live allocation. It is dropped when the allocation is
// freed or the heap is reset.
func (h *Heap) SetAllocationUserData(handle Handle, userData any) error {
	_, err := h.liveBlock(handle)
	if err != nil {
		return err
	}

	h.userData.Put(handle, userData)
	return nil
}

// AllocationUserData returns the value attached to a live allocation with SetAllocationUserData, or nil
func (h *Heap) AllocationUserData(handle Handle) (any, error) {
	_, err := h.liveBlock(handle)
	if err != nil {
		return nil, err
	}

	userData, _ := h.userData.Get(handle)
	return userData, nil
}
