package ukernel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tn-go/ukernel"
)

func TestMsgQueue_SendUrgentJumpsAheadOfNormalSend(t *testing.T) {
	k := newTestKernel(t)
	q, err := ukernel.NewMsgQueue[string](k, 4)
	require.NoError(t, err)

	got := make(chan []string, 1)
	_, err = k.NewThread(3, func(arg any) {
		require.Equal(t, ukernel.StatusOK, q.Send("normal-1", ukernel.Polling))
		require.Equal(t, ukernel.StatusOK, q.Send("normal-2", ukernel.Polling))
		require.Equal(t, ukernel.StatusOK, q.SendUrgent("urgent", ukernel.Polling))
		var values []string
		for i := 0; i < 3; i++ {
			v, status := q.Receive(ukernel.Polling)
			require.Equal(t, ukernel.StatusOK, status)
			values = append(values, v)
		}
		got <- values
	}, nil, ukernel.WithStartOnCreate(true))
	require.NoError(t, err)
	require.NoError(t, k.Start())

	select {
	case values := <-got:
		require.Equal(t, []string{"urgent", "normal-1", "normal-2"}, values)
	case <-time.After(time.Second):
		t.Fatal("thread never finished")
	}
}

func TestMsgQueue_SendPriorityOrdersByNumericallyLowerFirstWithFIFOTies(t *testing.T) {
	k := newTestKernel(t)
	q, err := ukernel.NewMsgQueue[string](k, 8)
	require.NoError(t, err)

	got := make(chan []string, 1)
	_, err = k.NewThread(3, func(arg any) {
		require.Equal(t, ukernel.StatusOK, q.SendPriority("mid-a", 5, ukernel.Polling))
		require.Equal(t, ukernel.StatusOK, q.SendPriority("low", 9, ukernel.Polling))
		require.Equal(t, ukernel.StatusOK, q.SendPriority("high", 1, ukernel.Polling))
		require.Equal(t, ukernel.StatusOK, q.SendPriority("mid-b", 5, ukernel.Polling))
		var values []string
		for i := 0; i < 4; i++ {
			v, status := q.Receive(ukernel.Polling)
			require.Equal(t, ukernel.StatusOK, status)
			values = append(values, v)
		}
		got <- values
	}, nil, ukernel.WithStartOnCreate(true))
	require.NoError(t, err)
	require.NoError(t, k.Start())

	select {
	case values := <-got:
		require.Equal(t, []string{"high", "mid-a", "mid-b", "low"}, values)
	case <-time.After(time.Second):
		t.Fatal("thread never finished")
	}
}

func TestMsgQueue_ReceiveBlocksUntilSendArrives(t *testing.T) {
	k := newTestKernel(t)
	q, err := ukernel.NewMsgQueue[int](k, 4)
	require.NoError(t, err)

	received := make(chan int, 1)
	ready := make(chan struct{})
	_, err = k.NewThread(3, func(arg any) {
		close(ready)
		value, status := q.Receive(ukernel.Forever)
		require.Equal(t, ukernel.StatusOK, status)
		received <- value
	}, nil, ukernel.WithStartOnCreate(true))
	require.NoError(t, err)
	require.NoError(t, k.Start())

	<-ready
	time.Sleep(20 * time.Millisecond)

	_, err = k.NewThread(3, func(arg any) {
		require.Equal(t, ukernel.StatusOK, q.Send(7, ukernel.Forever))
	}, nil, ukernel.WithStartOnCreate(true))
	require.NoError(t, err)

	select {
	case value := <-received:
		require.Equal(t, 7, value)
	case <-time.After(time.Second):
		t.Fatal("receiver was never sent a value")
	}
}

func TestMsgQueue_LenAndDelete(t *testing.T) {
	k := newTestKernel(t)
	q, err := ukernel.NewMsgQueue[int](k, 4)
	require.NoError(t, err)

	done := make(chan struct{})
	_, err = k.NewThread(3, func(arg any) {
		defer close(done)
		require.Equal(t, ukernel.StatusOK, q.Send(1, ukernel.Polling))
		require.Equal(t, ukernel.StatusOK, q.Send(2, ukernel.Polling))
		require.Equal(t, 2, q.Len())
	}, nil, ukernel.WithStartOnCreate(true))
	require.NoError(t, err)
	require.NoError(t, k.Start())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("thread never finished")
	}

	require.NoError(t, q.Delete())
	require.Error(t, q.Delete(), "already deleted")
}
