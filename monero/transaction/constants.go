package transaction

const TxInGen = 0xff

const TxOutToKey = 2
const TxOutToTaggedKey = 3

// TxVersion miner transactions are always RingCT layout
const TxVersion = 2
