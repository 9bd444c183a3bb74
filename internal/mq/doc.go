// Package mq доставляет scoring jobs от API и scheduler к воркерам через RabbitMQ.
//
// Сообщение несёт только job_id: состояние job живёт в Postgres, очередь
// лишь будит воркер. Поэтому потеря сообщения не теряет работу, а
// повторная доставка безопасна (Claim отклонит уже взятый job).
//
// Маршрутизация:
//
//	riskwatch.jobs --pending-->   jobs.pending   --> riskwatch-worker
//	               --completed--> jobs.completed (TTL 24h)
//	riskwatch.dlq  --jobs-->      dlq.jobs
//
// Публикация ждёт publisher confirm брокера. Сообщение, упавшее дважды,
// уходит в DLQ. Соединение переподключается
// само; топология объявляется заново после каждого переподключения.
package mq
