// Package lock сериализует допуск бронирований в пределах одного репетитора.
package lock

import "context"

// Locker выдаёт эксклюзивную блокировку по ключу.
// unlock можно вызывать несколько раз.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
